package spp

import "github.com/juju/loggo"

// logger is the package-wide trace logger, one per ambient-stack concern in
// the same spirit as a "[component: %s]"-prefixed trace logger. It defaults
// to loggo's WARNING level, so macro
// expansion and condition tracing only appear once an embedder turns
// logging up — this is operator-facing trace output, not part of the
// diagnostic contract surfaced through the preprocessor's reported errors.
var logger = loggo.GetLogger("preprocessor")
