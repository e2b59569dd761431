package cmd

const rootLongDescription = `Tracelift recovers the strings an obfuscated Lua script prints by running an
instrumented copy of it under a real Lua interpreter and reconstructing the
output from the captured trace.

Without a subcommand it behaves like "run". Supported path patterns:
  - script.lua     a single file
  - ./scripts      every .lua file in a directory
  - ./scripts/...  every .lua file below a directory

Exit codes: 0 success, 1 input error, 2 timeout, 3 inconclusive, 4 static only.`

const runLongDescription = `Run the whole pipeline on each script: fingerprint the obfuscation scheme,
inject capture hooks, execute the instrumented copy with a deadline, parse the
trace and rank candidate outputs. Reports are written to the reports directory.

The process exits with the code of the worst outcome among all scripts.`

const detectLongDescription = `Fingerprint each script against the indicator catalogue and print the
detected scheme, version, confidence and the structural survey.`

const injectLongDescription = `Write an instrumented copy of each script next to it (name.hooked.lua)
and print the injection plan. Nothing is executed.`

const traceLongDescription = `Parse a trace captured by running an instrumented script yourself and
reconstruct the candidate outputs. Pass "-" to read the trace from stdin.`

const watchLongDescription = `Analyse a script once, then again every time its content changes.
Stop with Ctrl+C.`
