package docstore

type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

func Eq(field string, v interface{}) Filter { return Filter{Field: field, Op: OpEq, Value: v} }

// In matches any of vs. Typed slices are accepted through the generic helper.
func In[T any](field string, vs ...T) Filter {
	vals := make([]interface{}, 0, len(vs))
	for _, v := range vs {
		vals = append(vals, v)
	}
	return Filter{Field: field, Op: OpIn, Value: vals}
}

type OrderBy struct {
	Field string
	Desc  bool
}

type Query struct {
	Filters []Filter
	OrderBy *OrderBy
	Limit   int
}

func Where(filters ...Filter) Query { return Query{Filters: filters} }

func (q Query) Asc(field string) Query {
	q.OrderBy = &OrderBy{Field: field}
	return q
}

func (q Query) Desc(field string) Query {
	q.OrderBy = &OrderBy{Field: field, Desc: true}
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}
