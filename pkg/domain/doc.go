/*
Package domain contains the core domain models shared by every agent variant.

It defines the error taxonomy for conversational operations (refusals that are
spoken back to the caller, versus infrastructure faults) and the lifecycle
events emitted while a conversation progresses. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Refusal: A user-facing rejection of an operation (not found, precondition
    violation, ambiguous input). The refusal text is part of the contract: it
    is what gets spoken to the end user.
  - LifecycleHooks: Callbacks for observability (tool dispatch, stage changes,
    persistence flushes).
*/
package domain
