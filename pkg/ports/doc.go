/*
Package ports defines the driven ports (interfaces) of the lead-qualification chat.

These interfaces decouple the conversation logic from external implementations, so
the same service runs against in-memory stores in tests and Redis/Postgres in
production.

# Key Interfaces

  - StateStore: Persists the live conversation State between requests.
  - DistributedLocker: Serializes access to one session across replicas.
  - SessionRepository: The long-term record the sales team reads (sessions, transcripts, knowledge queries).
  - LeadNotifier: Tells the sales team about a captured lead.
*/
package ports
