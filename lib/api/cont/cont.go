package cont

import (
	"context"

	"inviteguard/entity"
)

type ctxKey string

const OperatorDataKey ctxKey = "operatorData"

func PutOperator(c context.Context, op *entity.Operator) context.Context {
	return context.WithValue(c, OperatorDataKey, *op)
}

func GetOperator(c context.Context) *entity.Operator {
	op, ok := c.Value(OperatorDataKey).(entity.Operator)
	if !ok {
		return &entity.Operator{}
	}
	return &op
}
