package application

import (
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const LoginQuery = "Login"

type LoginData struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginQuery struct {
	data LoginData
}

func (q loginQuery) QueryName() string {
	return LoginQuery
}

func (q loginQuery) Payload() LoginData {
	return q.data
}

func NewLoginQuery(data LoginData) pkgDomain.Query[LoginData] {
	return loginQuery{data: data}
}
