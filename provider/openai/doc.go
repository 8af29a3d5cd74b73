// Package openai streams chat completions from the OpenAI API, or any server
// speaking the same protocol, through the stream package.
//
// Reasoning text sent by compatible servers as delta.reasoning_content is
// surfaced as thinking.
package openai
