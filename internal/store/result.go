package store

// Result is the uniform outcome of every store action. Err is set only when
// Success is false. Superseded marks a list or search response that arrived
// after a newer request was issued; such responses never touch state.
type Result[T any] struct {
	Success    bool
	Data       T
	Err        error
	Superseded bool
}

func success[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func failure[T any](err error) Result[T] {
	return Result[T]{Err: err}
}
