// Package eval resolves item properties.
//
// Scenario items may write any property either as a literal value or as an
// expression under the same key prefixed with a colon:
//
//	type: expect
//	":value": $results.login.response.status
//	expected: 200
//
// Expressions are evaluated with github.com/expr-lang/expr against the item
// context plus the $results of the running job. They cannot reach the host
// environment: the only names in scope are the bindings passed in, and only
// bindings whose names are valid identifiers are exposed.
package eval
