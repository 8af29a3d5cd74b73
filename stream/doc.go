// Package stream assembles a streamed chat completion into a final response.
//
// A provider decodes its wire events into Fragment values and hands them to an
// Assembler, one goroutine per stream. The Assembler aggregates text and
// thinking deltas, stitches tool-call deltas back into complete calls and
// drives a Handler: partial callbacks in arrival order, followed by exactly one
// of OnCompleteResponse or OnError.
//
//	resp, err := stream.Consume(ctx, fragments, stream.HandlerFuncs{
//		PartialResponse: func(_ context.Context, text string) { fmt.Print(text) },
//	}, stream.WithThinking(true))
package stream
