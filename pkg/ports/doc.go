/*
Package ports defines the driven ports (interfaces) of the Grapher engine.

These interfaces decouple the editor facade and the loop driver from concrete
storage, locking and process backends.

# Key Interfaces

  - DocumentStore: loads and saves a graph document at a path.
  - DocumentLocker: the single-writer lock protocol around a document path.
  - LauncherDispatcher: hands a generated launcher script to an external process.
*/
package ports
