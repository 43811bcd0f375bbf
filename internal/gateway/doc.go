// Package gateway delivers comparison prompts to users.
//
// Present replaces a user's outstanding prompt and is idempotent per
// fingerprint. Answers flow back through an AnswerHandler, normally a
// *session.Manager.
package gateway
