// Command ottoboost trains the Otto product classifier and writes the
// submission file.
//
// Run without arguments it reads train.csv and test.csv from the working
// directory and writes best_gradientboost.csv.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/ottoboost/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.GetLoggerWithName("main").Error("ottoboost failed", log.ErrAttr(err)...)
		stop()
		os.Exit(1)
	}
}
