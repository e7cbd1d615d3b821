package db

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

type querySpanKey struct{}

// queryTracer turns pgx queries into sentry child spans. Queries issued
// outside a traced request are left alone.
type queryTracer struct {
	maxStatementLen int
}

func newQueryTracer() *queryTracer {
	return &queryTracer{maxStatementLen: 512}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if sentry.SpanFromContext(ctx) == nil {
		return ctx
	}

	statement := t.compact(data.SQL)
	span := sentry.StartSpan(
		ctx,
		"db.sql.query",
		sentry.WithDescription(statement),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", "postgresql")
	if verb := statementVerb(statement); verb != "" {
		span.SetData("db.operation", verb)
	}
	if table := statementTable(statement); table != "" {
		span.SetData("db.sql.table", table)
	}

	return context.WithValue(span.Context(), querySpanKey{}, span)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, _ := ctx.Value(querySpanKey{}).(*sentry.Span)
	if span == nil {
		return
	}

	span.Status = sentry.SpanStatusOK
	if data.Err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", data.Err.Error())
	}
	if affected := data.CommandTag.RowsAffected(); affected >= 0 {
		span.SetData("db.rows_affected", affected)
	}

	span.Finish()
}

// compact collapses whitespace so multi-line statements group together in
// sentry, and truncates long ones.
func (t *queryTracer) compact(statement string) string {
	compacted := strings.Join(strings.Fields(statement), " ")
	if compacted == "" {
		return "sql.query"
	}
	if len(compacted) > t.maxStatementLen {
		return compacted[:t.maxStatementLen]
	}
	return compacted
}

func statementVerb(statement string) string {
	verb, _, _ := strings.Cut(statement, " ")
	return strings.ToUpper(verb)
}

// statementTable returns the first table named after FROM, INTO or UPDATE.
func statementTable(statement string) string {
	fields := strings.Fields(statement)
	for i := 0; i < len(fields)-1; i++ {
		switch strings.ToUpper(fields[i]) {
		case "FROM", "INTO", "UPDATE":
			return strings.Trim(fields[i+1], "(),;")
		}
	}
	return ""
}
