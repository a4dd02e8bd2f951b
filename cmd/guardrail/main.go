// Command guardrail is the administrative CLI for the guardrail policy engine.
package main

import "github.com/Guardrail-Labs/guardrail/cmd/guardrail/cmd"

func main() {
	cmd.Execute()
}
