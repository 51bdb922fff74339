/*
Package leadchat is the backend of the Green Office Villas retreat concierge: a chat
that qualifies prospective retreat planners, answers venue questions and hands
promising leads to the sales team.

# Concept

A conversation walks a fixed graph of questions. Every answer is validated against the
question's input kind and routed by a declarative rule (by option, by numeric range,
yes/no or always). Multi-choice answers can queue follow-up questions which are asked
in order before the flow resumes. At any choice the visitor may step aside to ask a
free-text question; the knowledge base answers from a keyword table and falls back to
a language model.

The answers so far yield a qualification score between 0 and 100. Conversations that
reveal a group too large for the venue, a waitlist fit, or a completed questionnaire
move into lead capture, which confirms a name and e-mail before notifying sales.

# Architecture

The engine (internal/runtime) is a pure function from state and input to the next
state. Everything with side effects sits behind ports:

  - pkg/ports: StateStore, SessionRepository, DistributedLocker and LeadNotifier.
  - pkg/adapters: memory, file and Redis state stores; Postgres records; SES e-mail;
    an OpenAI-compatible model; the HTTP API and an MCP server.
  - pkg/conversation: the service the transports call.

# Usage

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatal(err)
	}
	app, err := leadchat.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	reply, err := app.Service.Start(ctx, "")
	// render reply.Prompt, then app.Service.Answer(ctx, reply.SessionID, input)

The leadchat command wraps the same assembly: serve, chat, mcp, graph, validate,
session, export and migrate.
*/
package leadchat
