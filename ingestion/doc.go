// Package ingestion drives knowledge sources through the ingestion
// pipeline: fetch, chunk, embed, store, finalize.
//
// The Controller is a durable job state machine over a JobRepository;
// it records attempts, heartbeats and error history but never sleeps.
// The Pipeline executes the fixed step list for one job attempt on a
// worker pool, persisting a step cursor after each committed step so
// a re-run resumes without repeating committed writes. The Scheduler
// owns retry timing, re-submitting retryable failures with jittered
// exponential backoff.
package ingestion
