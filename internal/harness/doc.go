// Package harness runs YAML scenarios against the refgraph engine.
//
// A scenario drives engine operations step by step, checks each step's
// outcome, then asserts on the final store state and the journal. Scenarios
// are executable statements of the engine's guarantees: referential integrity
// after deletes, cascade completeness, and the subscribe/unsubscribe rules.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	request_id: req-fixed          # optional; default is req-1, req-2, ...
//	options:                       # optional engine policy
//	  allow_self_subscription: false
//	  allow_duplicate_subscriptions: false
//	setup:
//	  - op: account.create
//	    args: { firstName: Ada, lastName: Lovelace, email: ada@example.com }
//	flow:
//	  - op: account.subscribe
//	    args: { subscriberId: account-1, followedId: account-2 }
//	    expect:
//	      result: { subscribedToUserIds: [account-2] }
//	  - op: account.unsubscribe
//	    args: { subscriberId: account-1, followedId: account-2 }
//	    expect:
//	      error: EDGE_NOT_FOUND
//	assertions:
//	  - type: record
//	    kind: account
//	    id: account-1
//	    expect: { subscribedToUserIds: [] }
//
// Setup steps must succeed. A flow step without expect must succeed too.
//
// # Assertion Types
//
//   - record: the record exists and its fields match expect (subset match)
//   - absent: no record of kind with id exists
//   - count: exactly count records of kind match filter
//   - journal: the outcomes of the journal entries for operation, in order
//   - integrity: no stored reference points at a missing record
//
// # Deterministic Runs
//
// Every run uses a fresh in-memory store with per-kind sequence ids
// ("account-1", "post-1") and sequential request ids, so the final state can
// be compared byte for byte against a golden snapshot (see RunWithGolden).
package harness
