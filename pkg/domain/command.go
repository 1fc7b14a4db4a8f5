package domain

// Command representa uma intenção de alterar o estado do sistema.
type Command[T any] interface {
	CommandName() string
	Payload() T
}
