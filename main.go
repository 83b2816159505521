// 命令行入口：
// - 解析 flags、settings.yaml、.env 与 rules.yaml
// - 初始化日志、HTTP 客户端、CSV 日志与可选数据库
// - run（默认）/extract/stats/export 子命令
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version 通过 -ldflags 在构建时注入。
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdout)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wod: %v\n", err)
		os.Exit(1)
	}
}
