// Command recplan turns a call recorder's metadata into a plan of
// fixed-composition sections and dispatches each section to a renderer.
//
// Typical use:
//
//	recplan plan --in ./recording --out ./plan
//	recplan runs
//	recplan sections 1f2e3d4c
//
// Configuration is read from --config, ~/.config/recplan/config.toml or
// ./recplan.toml, in that order. `recplan config init` writes a sample file.
package main
