// Package dispatch routes named MCP calls to typed actions and normalizes
// every outcome into a single Envelope.
//
// An Action binds an input struct, whose JSON schema is reflected at
// registration, to a Run function that performs exactly one call against a
// shared client. The Dispatcher resolves the client through a Handle, binds
// and validates the caller's arguments, runs the action and converts the
// result, a returned error or a panic into one of three failure kinds:
//
//   - bad_input: arguments are missing, not coercible or fail the schema
//   - client_unavailable: the Handle could not provide a ready client
//   - internal_error: the action failed for any other reason
//
// An Envelope renders as indented JSON, either the action payload or an
// {"error": {...}} object, and can be adapted to an MCP tool result or an
// MCP prompt result.
//
// Example:
//
//	d := dispatch.New[Messenger](handle, logger)
//	_ = dispatch.Register(d, dispatch.Action[Messenger, ReplyInput, SentMessage]{
//		Name: "telegram_reply_to_message",
//		Run: func(ctx context.Context, m Messenger, in ReplyInput) (SentMessage, error) {
//			return m.ReplyToMessage(ctx, in.ChatID, in.MessageID, in.Text)
//		},
//	})
//	env := d.Call(ctx, "telegram_reply_to_message", args)
package dispatch
