/*
Package codec implements the Grapher literal file format.

A file is a flat sequence of assignment lines:

	# grapher document
	comment = "<p>shot 010 lighting</p>"
	variables = [{"enabled":true,"label":"root","operator":"=","value":"/prod","comment":""}]
	connections = [{"source":"shot/render","sourcePlug":"outputFile","dest":"frames","destPlug":"inputFile"}]
	tree = {"_order":["shot","shot/render"],"shot":{...},"shot/render":{...}}

Each literal is a single-line JSON value. Mappings whose key order matters carry an
explicit "_order" list. Lock sidecars and iteration markers use the same
assignment syntax with a single line.

The package is pure: it never touches the filesystem. See pkg/adapters/file for the
atomic store built on top of it.
*/
package codec
