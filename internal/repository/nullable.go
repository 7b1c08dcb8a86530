package repository

import "database/sql"

type nullString struct{ sql.NullString }

func (n nullString) ptr() *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

type nullInt struct{ sql.NullInt64 }

func (n nullInt) ptr() *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intArg(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
