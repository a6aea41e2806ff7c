package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

const kvTable = "kv"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func buildGetQuery(bucket, key string) (string, []any, error) {
	return psql.Select("value").
		From(kvTable).
		Where(sq.Eq{"bucket": bucket}).
		Where(sq.Eq{"key": key}).
		ToSql()
}

func buildUpsertQuery(bucket, key string, value []byte, now time.Time) (string, []any, error) {
	return psql.Insert(kvTable).
		Columns("bucket", "key", "value", "updated_at").
		Values(bucket, key, value, now.UnixNano()).
		Suffix("ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
}

func buildDeleteQuery(bucket, key string) (string, []any, error) {
	return psql.Delete(kvTable).
		Where(sq.Eq{"bucket": bucket}).
		Where(sq.Eq{"key": key}).
		ToSql()
}

func buildScanQuery(bucket string) (string, []any, error) {
	return psql.Select("key", "value").
		From(kvTable).
		Where(sq.Eq{"bucket": bucket}).
		OrderBy("key ASC").
		ToSql()
}

func buildClearQuery(bucket string) (string, []any, error) {
	return psql.Delete(kvTable).
		Where(sq.Eq{"bucket": bucket}).
		ToSql()
}
