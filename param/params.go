package param

import "time"

const (
	// lines preceding the first record in an amazon-meta dump
	HeaderLines = 3
	// number of blocks handed to normalization in a single read
	ReadBatch = 20 // prod: 20
	// rows per INSERT statement
	BatchSize = 1000
	// concurrent normalize routines per read batch
	Workers = 1
	// 0 : no limit on block parse errors
	ErrorLimit = 0
	// log progress every n blocks
	ProgressEvery = 10000
)

const (
	OnErrorSkip  = "skip"
	OnErrorAbort = "abort"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	SearchIndex = "produtos"
	AWSRegion   = "us-east-1"
)

const (
	// gorm logs statements slower than this at warn level
	SlowStatement = 2 * time.Second
	// Elasticsearch bulk request size in documents
	IndexBatch = 500
)
