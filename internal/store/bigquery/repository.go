// Package bigquery is a store.Repository backed by BigQuery tables in one dataset.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finbot/internal/store"
	"google.golang.org/api/iterator"
)

const (
	categoriesTable   = "categories"
	transactionsTable = "transactions"
	goalsTable        = "goals"
	budgetsTable      = "budgets"
	investmentsTable  = "investments"
)

// Repository implements store.Repository. It holds one shared client.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
	now     func() time.Time
}

// New creates a repository with its own client for project.
func New(ctx context.Context, project, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("New: creating client: %w", err)
	}
	return NewWithClient(client, project, dataset), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *bigquery.Client, project, dataset string) *Repository {
	return &Repository{client: client, project: project, dataset: dataset, now: time.Now}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the backtick-quoted fully qualified table name.
func (r *Repository) table(name string) string {
	return "`" + r.project + "." + r.dataset + "." + name + "`"
}

// runDML executes a DML statement and returns the number of affected rows.
func (r *Repository) runDML(ctx context.Context, sql string, params []bigquery.QueryParameter) (int64, error) {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// readAll runs a query and decodes every row into T.
func readAll[T any](ctx context.Context, r *Repository, sql string, params []bigquery.QueryParameter) ([]T, error) {
	q := r.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// deleteOwned removes one row scoped to userID.
func (r *Repository) deleteOwned(ctx context.Context, table, userID, id string) error {
	n, err := r.runDML(ctx, `DELETE FROM `+r.table(table)+` WHERE id = @id AND user_id = @user_id`,
		[]bigquery.QueryParameter{
			{Name: "id", Value: id},
			{Name: "user_id", Value: userID},
		})
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, store.ErrNotFound)
	}
	return nil
}

// Ensure Repository implements store.Repository.
var _ store.Repository = (*Repository)(nil)
