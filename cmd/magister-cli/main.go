package main

import (
	"context"
	"magister-backend/cmd/magister-cli/commands"
	"magister-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "magister-cli")
	commands.ExecuteContext(context.Background())
}
