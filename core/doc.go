// Package core defines the shared data model of agentcore: sessions, agent
// runs, messages, tool call records and the persistence contract they flow
// through. Higher-level packages (engine, store, bus) depend on core; core
// depends on nothing but the standard library and uuid.
package core
