package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/snowflakedb/gosnowflake"

	"go-reporting-orchestrator/internal/model"
)

// SnowflakeWarehouse implements Warehouse against Snowflake: the analysis
// script runs in-database as a Python stored procedure so the data never
// leaves the warehouse.
type SnowflakeWarehouse struct {
	db     *sql.DB
	schema string // database.schema qualifier for introspection
}

// NewSnowflakeWarehouse opens a connection using a gosnowflake DSN
// (user:pass@account/database/schema?warehouse=wh).
func NewSnowflakeWarehouse(dsn, schemaName string) (*SnowflakeWarehouse, error) {
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}
	return &SnowflakeWarehouse{db: db, schema: schemaName}, nil
}

func (w *SnowflakeWarehouse) DeployProcedure(ctx context.Context, name, source string, packages []string) error {
	quoted := make([]string, len(packages))
	for i, p := range packages {
		quoted[i] = "'" + p + "'"
	}

	stmt := fmt.Sprintf(`CREATE OR REPLACE PROCEDURE %s()
RETURNS VARIANT
LANGUAGE PYTHON
RUNTIME_VERSION = '3.10'
PACKAGES = (%s)
HANDLER = 'main'
AS $$
%s
$$`, name, strings.Join(quoted, ", "), source)

	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create procedure %s: %w", name, err)
	}
	return nil
}

func (w *SnowflakeWarehouse) CallProcedure(ctx context.Context, name string) (map[string]interface{}, error) {
	var raw string
	if err := w.db.QueryRowContext(ctx, fmt.Sprintf("CALL %s()", name)).Scan(&raw); err != nil {
		return nil, fmt.Errorf("procedure call failed: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("procedure returned non-JSON result: %w", err)
	}
	return result, nil
}

func (w *SnowflakeWarehouse) DropProcedure(ctx context.Context, name string) error {
	_, err := w.db.ExecContext(ctx, fmt.Sprintf("DROP PROCEDURE IF EXISTS %s()", name))
	return err
}

// GetSchema introspects the live schema so synthesis sees the column casing
// the warehouse will actually return.
func (w *SnowflakeWarehouse) GetSchema(ctx context.Context) (model.SchemaContext, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`, w.schema)
	if err != nil {
		return model.SchemaContext{}, fmt.Errorf("failed to fetch schema: %w", err)
	}
	defer rows.Close()

	var sc model.SchemaContext
	byName := make(map[string]int)
	for rows.Next() {
		var table, column, dtype string
		if err := rows.Scan(&table, &column, &dtype); err != nil {
			return model.SchemaContext{}, err
		}
		idx, ok := byName[table]
		if !ok {
			idx = len(sc.Tables)
			byName[table] = idx
			sc.Tables = append(sc.Tables, model.Table{Name: table})
		}
		sc.Tables[idx].Columns = append(sc.Tables[idx].Columns, model.Column{Name: column, Type: dtype})
	}
	if err := rows.Err(); err != nil {
		return model.SchemaContext{}, err
	}
	if len(sc.Tables) == 0 {
		return model.SchemaContext{}, fmt.Errorf("schema %s does not exist or has no tables", w.schema)
	}
	return sc, nil
}

// Close releases the underlying connection pool.
func (w *SnowflakeWarehouse) Close() error {
	return w.db.Close()
}
