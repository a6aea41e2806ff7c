package queue

// IDGenerator produces queue entry ids.
type IDGenerator interface {
	Generate() string
}
