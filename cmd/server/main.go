package main

import (
	"fmt"
	"os"

	"github.com/yungbote/fathom-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	application.Log.Info("server listening", "addr", application.Cfg.Addr)
	if err := application.Run(application.Cfg.Addr); err != nil {
		application.Log.Error("server stopped", "error", err)
	}
}
