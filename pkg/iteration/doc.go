/*
Package iteration drives loop nodes safely across crashes and restarts.

A Guard records each completed (loop, iterator, value) tuple as a marker file,
so re-running a loop only executes the missing iterations. Launchers chain
guard scripts and the body script in a host scripting dialect, and the Driver
ties both together for a whole value list.
*/
package iteration
