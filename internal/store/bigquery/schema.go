package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

func field(name string, typ bigquery.FieldType, required bool) *bigquery.FieldSchema {
	return &bigquery.FieldSchema{Name: name, Type: typ, Required: required}
}

// Schemas maps each table to its schema.
var Schemas = map[string]bigquery.Schema{
	categoriesTable: {
		field("id", bigquery.StringFieldType, true),
		field("name", bigquery.StringFieldType, true),
		field("type", bigquery.StringFieldType, true),
		field("icon", bigquery.StringFieldType, false),
		field("color", bigquery.StringFieldType, false),
	},
	transactionsTable: {
		field("id", bigquery.StringFieldType, true),
		field("user_id", bigquery.StringFieldType, true),
		field("type", bigquery.StringFieldType, true),
		field("amount", bigquery.NumericFieldType, true),
		field("description", bigquery.StringFieldType, true),
		field("category_id", bigquery.StringFieldType, true),
		field("date", bigquery.DateFieldType, true),
		field("created_ts", bigquery.TimestampFieldType, true),
	},
	goalsTable: {
		field("id", bigquery.StringFieldType, true),
		field("user_id", bigquery.StringFieldType, true),
		field("name", bigquery.StringFieldType, true),
		field("target_amount", bigquery.NumericFieldType, true),
		field("current_amount", bigquery.NumericFieldType, false),
		field("target_date", bigquery.DateFieldType, false),
		field("created_ts", bigquery.TimestampFieldType, true),
	},
	budgetsTable: {
		field("id", bigquery.StringFieldType, true),
		field("user_id", bigquery.StringFieldType, true),
		field("category_id", bigquery.StringFieldType, true),
		field("limit_amount", bigquery.NumericFieldType, true),
		field("month", bigquery.StringFieldType, true),
		field("created_ts", bigquery.TimestampFieldType, true),
	},
	investmentsTable: {
		field("id", bigquery.StringFieldType, true),
		field("user_id", bigquery.StringFieldType, true),
		field("name", bigquery.StringFieldType, true),
		field("type", bigquery.StringFieldType, true),
		field("amount", bigquery.NumericFieldType, true),
		field("created_ts", bigquery.TimestampFieldType, true),
	},
}

// EnsureTables creates the dataset and any missing tables. Existing ones are left alone.
func (r *Repository) EnsureTables(ctx context.Context) error {
	ds := r.client.DatasetInProject(r.project, r.dataset)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("EnsureTables: creating dataset %s: %w", r.dataset, err)
	}

	for _, name := range []string{categoriesTable, transactionsTable, goalsTable, budgetsTable, investmentsTable} {
		meta := &bigquery.TableMetadata{Schema: Schemas[name]}
		if name == transactionsTable {
			meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.MonthPartitioningType, Field: "date"}
			meta.Clustering = &bigquery.Clustering{Fields: []string{"user_id"}}
		}
		if err := ds.Table(name).Create(ctx, meta); err != nil && !alreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating %s: %w", name, err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
