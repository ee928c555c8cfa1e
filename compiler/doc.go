/*
Package compiler is the ILOC code generation backend.

Process of compilation

ILOC Text ->
	front.Read ->
Control Flow Graph (back.Function) ->
	Clean, CopyPropagation, TargetPropagation, RemoveDead ->
Optimized Graph ->
	Allocate (liveness, color) ->
Allocated Graph ->
	Emit (asm/amd64) ->
Assembly Text
*/
package compiler
