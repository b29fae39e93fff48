/*
Package domain contains the core data model of the Grapher pipeline-graph engine.

It defines the entities shared by the graph tree, the persistence codec, the lock
coordinator and the iteration guard. The package is kept free of I/O so that every
adapter (file, redis, process) can depend on it without pulling in the others.

# Key Entities

  - Node: a typed pipeline step (modul, sysData, cmdData, pyData, loop, condition).
  - Connection: a directed plug-to-plug link between two nodes of a document.
  - Variable: an ordered substitution record with an accumulation operator.
  - LockInfo / LockState: the single-writer ownership of a document file.
  - Marker / Outcome: the "already ran this iteration" record of a loop node.
*/
package domain
