package reader

import (
	"bufio"
	"fmt"
	"io"

	"github.com/CatalogLoad/meta/ds"
	param "github.com/CatalogLoad/param"
	slog "github.com/CatalogLoad/syslog"
)

const (
	logid = "metaReader: "
	// longest line accepted, titles can be long
	maxLine = 4 * 1024 * 1024
)

func syslog(s string) {
	slog.Log(logid, s)
}

type Option func(*Reader)

// WithHeaderLines sets the number of leading lines skipped before the first record.
func WithHeaderLines(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.header = n
		}
	}
}

// Reader turns a dump into blocks, one per record. It is single pass and holds no
// lookahead beyond the current line.
type Reader struct {
	bs     *bufio.Scanner
	line   int
	header int
	done   bool
	b      builder
}

func New(f io.Reader, opts ...Option) *Reader {

	r := &Reader{header: param.HeaderLines}
	for _, o := range opts {
		o(r)
	}
	r.bs = bufio.NewScanner(f)
	r.bs.Buffer(make([]byte, 0, 64*1024), maxLine)

	return r
}

// Line returns the number of input lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next finalized block, or io.EOF when the input is exhausted.
// Blocks that failed to parse are returned with Err set; only a failure of the
// underlying stream is returned as error.
func (r *Reader) Next() (*ds.Block, error) {

	for {
		if r.done {
			return nil, io.EOF
		}
		if !r.bs.Scan() {
			r.done = true
			if err := r.bs.Err(); err != nil {
				return nil, fmt.Errorf("read line %d: %w", r.line+1, err)
			}
			// end of input closes the last block
			if blk := r.b.finalize(); blk != nil {
				return r.emit(blk), nil
			}
			return nil, io.EOF
		}
		r.line++
		if r.line <= r.header {
			continue
		}
		if r.b.classify(r.bs.Text(), r.line) {
			if blk := r.b.finalize(); blk != nil {
				return r.emit(blk), nil
			}
		}
	}
}

// Read fills n with up to len(n) blocks. It returns the number of blocks placed in n
// and whether the end of input was reached.
func (r *Reader) Read(n []*ds.Block) (int, bool, error) {

	for i := range n {
		blk, err := r.Next()
		if err == io.EOF {
			return i, true, nil
		}
		if err != nil {
			return i, false, err
		}
		n[i] = blk
	}
	return len(n), false, nil
}

func (r *Reader) emit(blk *ds.Block) *ds.Block {
	if blk.Err != nil {
		syslog(fmt.Sprintf("block at line %d: %s", blk.Line, blk.Err))
	}
	return blk
}
