// bigquery.go executes against BigQuery through the cloud client. DDL runs
// as a query job; managed-table loads come in from GCS as load jobs with an
// explicit schema, never autodetect, so the table always matches what the
// user approved at preview.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tableport/tableport/internal/core"
)

type bigqueryExecutor struct {
	client  *bigquery.Client
	dataset string
}

func newBigQueryExecutor(ctx context.Context, cfg Config) (core.Executor, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s (bigquery): %w", cfg.ID, err)
	}
	return &bigqueryExecutor{client: client, dataset: cfg.Dataset}, nil
}

func (e *bigqueryExecutor) ExecDDL(ctx context.Context, stmt string) error {
	q := e.client.Query(stmt)
	q.DefaultDatasetID = e.dataset
	job, err := q.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

// InsertBatch streams rows through the insert API. Values are already
// coerced Go types, which the BigQuery client encodes against the explicit
// schema; nil cells become NULLs.
func (e *bigqueryExecutor) InsertBatch(ctx context.Context, table string, schema core.ColumnSchema, rows [][]any) error {
	bqSchema := bigquerySchema(schema)
	savers := make([]*bigquery.ValuesSaver, len(rows))
	for i, row := range rows {
		vals := make([]bigquery.Value, len(row))
		for j, v := range row {
			vals[j] = v
		}
		savers[i] = &bigquery.ValuesSaver{Schema: bqSchema, Row: vals}
	}
	return e.client.Dataset(e.dataset).Table(table).Inserter().Put(ctx, savers)
}

// LoadFromStorage runs a load job from a staged GCS object into the table.
func (e *bigqueryExecutor) LoadFromStorage(ctx context.Context, table string, schema core.ColumnSchema, format core.StorageFormat, location string) error {
	gcsRef := bigquery.NewGCSReference(location)
	switch format {
	case core.FormatCSV:
		gcsRef.SourceFormat = bigquery.CSV
		gcsRef.SkipLeadingRows = 1
	case core.FormatParquet:
		gcsRef.SourceFormat = bigquery.Parquet
	default:
		return fmt.Errorf("bigquery cannot load %s objects", format)
	}
	gcsRef.Schema = bigquerySchema(schema)

	loader := e.client.Dataset(e.dataset).Table(table).LoaderFrom(gcsRef)
	loader.WriteDisposition = bigquery.WriteAppend

	job, err := loader.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

func (e *bigqueryExecutor) DropTable(ctx context.Context, table string) error {
	err := e.client.Dataset(e.dataset).Table(table).Delete(ctx)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil
	}
	return err
}

func (e *bigqueryExecutor) Close() error {
	return e.client.Close()
}

var bigqueryFieldTypes = map[core.ColumnType]bigquery.FieldType{
	core.TypeBoolean:  bigquery.BooleanFieldType,
	core.TypeDatetime: bigquery.TimestampFieldType,
	core.TypeFloat:    bigquery.FloatFieldType,
	core.TypeInteger:  bigquery.IntegerFieldType,
	core.TypeString:   bigquery.StringFieldType,
}

// bigquerySchema maps a canonical schema to BigQuery field types. Custom
// column types have no portable meaning to the load API and land as strings.
func bigquerySchema(schema core.ColumnSchema) bigquery.Schema {
	fields := make(bigquery.Schema, len(schema))
	for i, col := range schema {
		ft, ok := bigqueryFieldTypes[core.ColumnType(col.Type)]
		if !ok {
			ft = bigquery.StringFieldType
		}
		fields[i] = &bigquery.FieldSchema{Name: col.Name, Type: ft}
	}
	return fields
}
