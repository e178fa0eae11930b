// Package core provides the foundational domain types shared by every layer
// of the kernel: the run state record, its append-only message/progress/error
// logs, the agent contract, and the closed error-kind taxonomy. Concrete
// orchestration (planning, grouping, retrying, routing) lives in sibling
// packages; core only defines the data and the contract they operate on.
package core
