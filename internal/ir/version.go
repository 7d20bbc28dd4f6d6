package ir

// EngineVersion is the linkage release version reported by the CLI.
const EngineVersion = "0.1.0"
