package contract

import "context"

type Completer interface {
	Complete(ctx context.Context, prompt string, params CompletionParams) (string, error)
}

type Handler interface {
	Handle(ctx context.Context, in HandlerInput, ictx InvocationContext) (HandlerResult, error)
}

type QueryService interface {
	RunQuery(ctx context.Context, sql string) ([]Row, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, text string) ([]Document, error)
}

type ActionService interface {
	Invoke(ctx context.Context, action string, target string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, subject string, message string) error
}
