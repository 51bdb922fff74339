/*
Package domain contains the core models of the lead-qualification chat.

It defines the entities the flow engine works with: questions and their
transition rules, the per-session conversation state, and the records that are
persisted for the sales team. The package is kept pure and free of I/O.

# Key Entities

  - Question: One step of the questionnaire graph (prompt, input kind, options).
  - Rule / Route: Declarative transitions evaluated after a valid answer.
  - State: The runtime snapshot of a session (current question, answers, follow-up queue).
  - SessionRecord / TranscriptEntry: What the sales dashboard reads back.
*/
package domain
