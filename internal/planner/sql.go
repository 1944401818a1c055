package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"dynquery/internal/mapping"
	"dynquery/internal/sqlutil"
)

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// ToSQL renders the plan for dialect d.
func (p *Plan) ToSQL(d sqlutil.Dialect) (SQLQuery, error) {
	columns := make([]string, 0, len(p.Columns)+len(p.Expressions))
	for _, c := range p.Columns {
		columns = append(columns, d.QualifiedColumn(c.Table, c.Name))
	}
	for _, e := range p.Expressions {
		columns = append(columns, fmt.Sprintf("(%s) AS %s", e.SQL, d.Quote(e.Property)))
	}

	builder := sq.Select(columns...).From(d.Quote(p.Table))
	builder, err := applyJoins(builder, p.Joins, d)
	if err != nil {
		return SQLQuery{}, err
	}
	if p.Where != nil {
		where, err := sqlizer(p.Where, d)
		if err != nil {
			return SQLQuery{}, err
		}
		builder = builder.Where(where)
	}
	for _, o := range p.OrderBy {
		direction := "ASC"
		if o.Descending {
			direction = "DESC"
		}
		builder = builder.OrderBy(d.QualifiedColumn(o.Column.Table, o.Column.Name) + " " + direction)
	}
	if p.Limit > 0 {
		builder = builder.Limit(p.Limit).Offset(p.Offset)
	}

	query, args, err := builder.PlaceholderFormat(d.Placeholder()).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// ToSQL renders the count plan for dialect d.
func (p *CountPlan) ToSQL(d sqlutil.Dialect) (SQLQuery, error) {
	builder := sq.Select("COUNT(*)").From(d.Quote(p.Table))
	builder, err := applyJoins(builder, p.Joins, d)
	if err != nil {
		return SQLQuery{}, err
	}
	if p.Where != nil {
		where, err := sqlizer(p.Where, d)
		if err != nil {
			return SQLQuery{}, err
		}
		builder = builder.Where(where)
	}

	query, args, err := builder.PlaceholderFormat(d.Placeholder()).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

func applyJoins(builder sq.SelectBuilder, joins []mapping.JoinSpec, d sqlutil.Dialect) (sq.SelectBuilder, error) {
	for _, j := range joins {
		on := fmt.Sprintf("%s = %s",
			d.QualifiedColumn(j.OnTable(), j.OnColumn()),
			d.QualifiedColumn(j.Table, j.Other),
		)
		var args []interface{}
		if j.Extra != nil {
			extra, extraArgs, err := j.Extra.ToSql()
			if err != nil {
				return builder, fmt.Errorf("join %s: %w", j.Table, err)
			}
			on = fmt.Sprintf("%s AND (%s)", on, extra)
			args = extraArgs
		}
		builder = builder.JoinClause(fmt.Sprintf("%s JOIN %s ON %s", j.Type, d.Quote(j.Table), on), args...)
	}
	return builder, nil
}
