// Command forecastd 基于历史价格生成校准后的蒙特卡洛价格路径.
// 指定 -prices 时对单个 CSV 运行一次预测并输出 JSON 摘要，否则启动 HTTP 服务.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/app"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/cache"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/forecast"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/idgen"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/limiter"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/logging"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/metrics"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/middleware"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/server"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/tracing"

	"github.com/gin-gonic/gin"
)

var version = "dev"

// busyWait HTTP 请求等待模拟名额的最长时间，超时返回 503.
const busyWait = 2 * time.Second

type cliOptions struct {
	confPath   string
	pricesPath string
	pathsOut   string
	request    forecast.Request
	seed       int64
	showVer    bool
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if o.showVer {
		fmt.Println(version)
		return
	}

	if err := run(context.Background(), o); err != nil {
		slog.Error("forecastd failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags 解析命令行. 只有显式给出 -seed 时才覆盖配置中的种子，-seed=0 同样有效.
func parseFlags(args []string) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("forecastd", flag.ContinueOnError)
	fs.StringVar(&o.confPath, "conf", "", "path to TOML config file (defaults and APP_ env only when empty)")
	fs.StringVar(&o.pricesPath, "prices", "", "CSV of date,price rows; run one forecast and print the JSON summary")
	fs.StringVar(&o.pathsOut, "paths-out", "", "with -prices, also write every simulated path to this CSV file")
	fs.IntVar(&o.request.HorizonDays, "horizon", 0, "forecast horizon in trading days")
	fs.IntVar(&o.request.Paths, "paths", 0, "number of simulated paths")
	fs.IntVar(&o.request.PilotPaths, "pilot-paths", 0, "number of zero-drift pilot paths for calibration")
	fs.IntVar(&o.request.BlockLength, "block", 0, "bootstrap block length in periods")
	fs.Int64Var(&o.seed, "seed", 0, "random seed (config default when not given)")
	fs.StringVar(&o.request.Recenter, "recenter", "", "residual recentering: none or local")
	fs.StringVar((*string)(&o.request.Views.Outlook), "outlook", "", "pessimistic, base or optimistic")
	fs.StringVar((*string)(&o.request.Views.Mood), "mood", "", "calm, normal or turbulent")
	fs.StringVar((*string)(&o.request.Views.Confidence), "confidence", "", "low, medium or high")
	fs.BoolVar(&o.showVer, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.request.Seed = &o.seed
		}
	})
	return o, nil
}

func run(ctx context.Context, o cliOptions) error {
	conf, err := config.Load(o.confPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Service:    conf.Server.Name,
		Module:     "forecastd",
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		Stdout:     conf.Log.Stdout,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
		Compress:   conf.Log.Compress,
		// 单次运行时 stdout 只输出 JSON 结果.
		Writer: cliLogWriter(o),
	})
	logger := logging.Default()

	if err := idgen.Init(conf.Snowflake); err != nil {
		return fmt.Errorf("failed to init id generator: %w", err)
	}

	calibrations, err := cache.New(conf.Cache)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if conf.Metrics.Enabled {
		m = metrics.NewMetrics(conf.Server.Name)
		m.RegisterBuildInfo(conf.Server.Name, version)
	}

	svc := forecast.NewService(conf.Simulation,
		forecast.WithCache(calibrations),
		forecast.WithMetrics(m),
		forecast.WithLogger(logger),
	)

	if o.pricesPath != "" {
		defer calibrations.Close()
		return runOnce(ctx, svc, o, os.Stdout)
	}
	return serve(ctx, conf, svc, m, calibrations, logger)
}

func cliLogWriter(o cliOptions) io.Writer {
	if o.pricesPath != "" {
		return os.Stderr
	}
	return nil
}

func runOnce(ctx context.Context, svc *forecast.Service, o cliOptions, out io.Writer) error {
	f, err := os.Open(o.pricesPath)
	if err != nil {
		return err
	}
	defer f.Close()

	series, err := forecast.ReadCSV(f)
	if err != nil {
		return err
	}

	res, err := svc.Run(ctx, series, o.request)
	if err != nil {
		return err
	}

	if o.pathsOut != "" {
		pf, err := os.Create(o.pathsOut)
		if err != nil {
			return err
		}
		if err := forecast.WritePathsCSV(pf, res.Paths()); err != nil {
			pf.Close()
			return err
		}
		if err := pf.Close(); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func serve(ctx context.Context, conf *config.Config, svc *forecast.Service, m *metrics.Metrics, calibrations cache.Cache, logger *logging.Logger) error {
	shutdownTracer, err := tracing.InitTracer(conf.Tracing)
	if err != nil {
		return err
	}

	rl := limiter.NewDynamicLimiter(nil)
	if conf.RateLimit.Enabled {
		rl.UpdateKeyed(conf.RateLimit.Rate, conf.RateLimit.Burst)
	}

	config.RegisterReloadHook(func(next *config.Config) {
		svc.UpdateConfig(next.Simulation)
		if next.RateLimit.Enabled {
			rl.UpdateKeyed(next.RateLimit.Rate, next.RateLimit.Burst)
		} else {
			rl.Update(nil)
		}
	})

	if conf.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	mws := []gin.HandlerFunc{
		middleware.Recovery(logger.Logger),
		middleware.RequestID(),
		middleware.Logger(logger.Logger),
	}
	if conf.Tracing.Enabled {
		mws = append(mws, middleware.TracingMiddleware(conf.Server.Name, "/healthz", conf.Metrics.Path))
	}
	mws = append(mws,
		middleware.HTTPMetricsMiddlewareWithOptions(m, middleware.MetricsOptions{
			SlowThreshold: 10 * time.Second,
			SkipPaths:     []string{"/healthz", conf.Metrics.Path},
		}),
		middleware.HTTPSizeMiddleware(m),
		middleware.MaxBodyBytes(conf.Server.HTTP.MaxBodyBytes),
		middleware.RateLimitMiddleware(rl),
		middleware.TimeoutMiddleware(func() time.Duration { return svc.Config().Timeout }),
	)
	engine := server.NewDefaultGinEngine(mws...)

	h := forecast.NewHandler(svc, m, conf.Metrics.Path, version)
	h.Register(engine, middleware.ConcurrencyLimit(limiter.NewSemaphoreLimiter(conf.Simulation.MaxConcurrent), busyWait))

	config.PrintWithMask(conf)

	a := app.New(conf.Server.Name, version, logger.Logger,
		app.WithServer(server.NewGinServer(engine, conf.Server, logger.Logger)),
		app.WithCleanup("tracer", shutdownTracer),
		app.WithCleanup("calibration-cache", func(context.Context) error { return calibrations.Close() }),
	)
	return a.Run(ctx)
}
