// Package planner compiles a query specification against a mapping into an
// executable plan: the selected columns, the joins they imply, the WHERE
// expression, ordering and paging. Plans are dialect independent and are
// rendered to parameterized SQL with ToSQL.
package planner
