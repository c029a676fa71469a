// Package runlog records one summary item per load run in a DynamoDB table.
package runlog

import (
	"context"
	"fmt"
	"time"

	slog "github.com/CatalogLoad/syslog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

const (
	logid = "runlog: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

type Entity struct {
	Entity   string
	Rows     int
	Inserted int64
	Elapsed  string
	Error    string `dynamodbav:",omitempty"`
	Skipped  bool   `dynamodbav:",omitempty"`
}

// Run is the stored item. RunID is the partition key of the table.
type Run struct {
	RunID       string
	When        string
	Input       string
	Status      string
	Blocks      int
	ParseErrors int
	Aborted     bool
	Elapsed     string
	Entities    []Entity
}

const (
	StatusOK      = "OK"
	StatusFailed  = "FAILED"
	StatusAborted = "ABORTED"
)

type Writer struct {
	svc   dynamodbiface.DynamoDBAPI
	table string
}

func New(svc dynamodbiface.DynamoDBAPI, table string) *Writer {
	return &Writer{svc: svc, table: table}
}

func (w *Writer) Put(ctx context.Context, run Run) error {

	if len(run.When) == 0 {
		run.When = time.Now().UTC().Format(time.RFC3339)
	}
	av, err := dynamodbattribute.MarshalMap(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.RunID, err)
	}

	t0 := time.Now()
	ret, err := w.svc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:              aws.String(w.table),
		Item:                   av,
		ReturnConsumedCapacity: aws.String("TOTAL"),
	})
	if err != nil {
		return fmt.Errorf("put run %s into %s: %w", run.RunID, w.table, err)
	}
	syslog(fmt.Sprintf("%s: consumed capacity for PutItem %s. Duration: %s", w.table, ret.ConsumedCapacity, time.Since(t0)))

	return nil
}
