/*
Package ports defines the driven-port interfaces of the agent core.

Adapters (filesystem, Redis) implement these interfaces so the core stays
decoupled from any particular persistence technology. The package also ships
a reusable contract test suite that every SnapshotStore adapter must pass.
*/
package ports
