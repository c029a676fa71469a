package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/CatalogLoad/config"
	"github.com/CatalogLoad/db"
	"github.com/CatalogLoad/dbConn"
	"github.com/CatalogLoad/fts"
	"github.com/CatalogLoad/pipeline"
	"github.com/CatalogLoad/runlog"
	"github.com/CatalogLoad/source"
	"github.com/CatalogLoad/types"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/spf13/cobra"
)

// parse errors printed in the run summary; all of them are logged
const maxListedErrors = 20

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Parse the dump and insert it into the store",
	Long: `Reads the dump, normalizes every product block and inserts the rows with
ON CONFLICT DO NOTHING, so a repeated run adds nothing. Exits non-zero when the
run aborted or any table failed to load.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse and normalize the dump without a store",
	Args:  cobra.NoArgs,
	RunE:  runParse,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the catalog tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

// awsSessions builds the AWS session on first use only.
type awsSessions struct {
	region string
	sess   *session.Session
}

func (a *awsSessions) get() (*session.Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}
	sess, err := dbConn.AWSSession(a.region)
	if err != nil {
		return nil, err
	}
	a.sess = sess
	return sess, nil
}

func openInput(cmd *cobra.Command, cfg config.Config, sessions *awsSessions) (io.ReadCloser, error) {
	var svc s3iface.S3API
	if source.IsS3(cfg.Input) {
		sess, err := sessions.get()
		if err != nil {
			return nil, err
		}
		svc = s3.New(sess)
	}
	return source.Open(cmd.Context(), cfg.Input, svc)
}

func runLoad(cmd *cobra.Command, _ []string) error {

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sessions := &awsSessions{region: cfg.AWS.Region}

	in, err := openInput(cmd, cfg, sessions)
	if err != nil {
		return err
	}
	defer in.Close()

	gdb, err := dbConn.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer dbConn.Close(gdb)

	opts := []pipeline.Option{pipeline.WithStore(gdb)}

	if cfg.Search.Enabled() {
		ix, err := fts.New(cfg.Search)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithIndexer(ix))
	}
	if cfg.RunLog.Enabled() {
		sess, err := sessions.get()
		if err != nil {
			return err
		}
		dcfg := aws.NewConfig()
		if len(cfg.RunLog.Region) > 0 {
			dcfg = dcfg.WithRegion(cfg.RunLog.Region)
		}
		opts = append(opts, pipeline.WithRunLog(runlog.New(dynamodb.New(sess, dcfg), cfg.RunLog.Table)))
	}

	res, err := pipeline.New(cfg, opts...).Run(cmd.Context(), in)
	if res != nil {
		printResult(cmd.OutOrStdout(), res, true)
	}
	if err != nil {
		return err
	}
	if res.Failed() {
		return errors.New("load finished with failed tables")
	}
	return nil
}

func runParse(cmd *cobra.Command, _ []string) error {

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	in, err := openInput(cmd, cfg, &awsSessions{region: cfg.AWS.Region})
	if err != nil {
		return err
	}
	defer in.Close()

	res, err := pipeline.New(cfg).Parse(cmd.Context(), in)
	if res != nil {
		printResult(cmd.OutOrStdout(), res, false)
	}
	return err
}

func runSchema(cmd *cobra.Command, _ []string) error {

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	gdb, err := dbConn.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer dbConn.Close(gdb)

	if err := db.CreateSchema(cmd.Context(), gdb); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tables ready: %v\n", db.Tables())
	return nil
}

func printResult(w io.Writer, res *pipeline.Result, loaded bool) {

	fmt.Fprintf(w, "run %s: %d blocks, %d rejected, %s\n", res.RunID, res.Blocks, len(res.ParseErrors), res.Elapsed)
	for i, e := range res.ParseErrors {
		if i == maxListedErrors {
			fmt.Fprintf(w, "  ... %d more\n", len(res.ParseErrors)-i)
			break
		}
		fmt.Fprintf(w, "  %s\n", e)
	}
	if res.Aborted {
		fmt.Fprintln(w, "run aborted, nothing loaded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if !loaded {
		fmt.Fprintln(tw, "TABLE\tROWS")
		for _, name := range types.LoadOrder {
			fmt.Fprintf(tw, "%s\t%d\n", name, res.Rows.Count(name))
		}
		tw.Flush()
		return
	}
	fmt.Fprintln(tw, "TABLE\tROWS\tINSERTED\tELAPSED\tSTATUS")
	for _, e := range res.Report {
		status := "ok"
		switch {
		case e.Skipped:
			status = "skipped"
		case e.Err != nil:
			status = "FAILED: " + e.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", e.Entity, e.Rows, e.Inserted, e.Elapsed, status)
	}
	tw.Flush()
	if res.Indexed > 0 || res.IndexErr != nil {
		fmt.Fprintf(w, "search index: %d documents", res.Indexed)
		if res.IndexErr != nil {
			fmt.Fprintf(w, " (%s)", res.IndexErr)
		}
		fmt.Fprintln(w)
	}
}
