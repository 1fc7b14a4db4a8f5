package domain

// IDGenerator produz identificadores novos a cada chamada.
type IDGenerator[T any] func() T
