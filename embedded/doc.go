// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package embedded implements scripted.Script for embedded scripts:
// literal text with code segments in one or more scripting engines.
//
// Syntax
//
// Code is delimited by <% %>, or by <? ?> if that pair appears first
// in the text; a script uses one pair throughout.
//
//     <html><% echo "<p>$(date)</p>" %></html>
//     <%= $USER %>            print an expression
//     <%& header %>           include the script named "header"
//     <%template {{.Name}} %> switch engines
//
// If the first word of a segment is the name of a registered engine,
// it selects the engine for that segment and every following segment,
// until another segment names an engine.  Text with no code segments
// at all is trivial: its output is the text itself.
//
// Engines
//
// The shell engine runs POSIX shell code in-process.  Shell scripts
// reach their container through the "container" builtin, for
// instance "container stream", "container include header", or
// "container media-type text/csv", and set their cache duration with
// "script cache-duration 10s".  The template engine runs text/template
// code with equivalent functions.  The markdown engine renders
// Markdown to HTML.
//
// Caching
//
// A script may declare a cache duration.  While the last complete run
// of the script is more recent than that, Run declines to run again,
// and the container serves the cached output instead.
package embedded
