package auth

import (
	"context"
	"fmt"

	"inviteguard/entity"
)

type Database interface {
	GetOperator(ctx context.Context, token string) (*entity.Operator, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

func (a Auth) OperatorByToken(ctx context.Context, token string) (*entity.Operator, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	op, err := a.db.GetOperator(ctx, token)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("unknown token")
	}
	return op, nil
}
