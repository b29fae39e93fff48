// Package diagram renders graph documents as Mermaid flowcharts.
package diagram
