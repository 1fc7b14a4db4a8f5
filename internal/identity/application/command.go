package application

import (
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const RegisterUserCommand = "RegisterUser"

// RegisterUserData contém os dados do formulário de cadastro. Todo cadastro público é Customer.
type RegisterUserData struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type registerUserCommand struct {
	data RegisterUserData
}

func (c registerUserCommand) CommandName() string {
	return RegisterUserCommand
}

func (c registerUserCommand) Payload() RegisterUserData {
	return c.data
}

func NewRegisterUserCommand(data RegisterUserData) pkgDomain.Command[RegisterUserData] {
	return registerUserCommand{data: data}
}
