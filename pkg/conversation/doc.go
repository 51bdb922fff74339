/*
Package conversation ties the flow engine to storage.

Live state goes through a session.Manager so answers for one session are
applied one at a time. Everything the sales team reads later (records,
transcripts, knowledge questions, lead emails) is written best-effort: a
failing database or mail provider is logged and counted but never stops the
visitor's conversation.
*/
package conversation
