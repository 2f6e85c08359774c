package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rlupton/weaver/compiler"
	"github.com/rlupton/weaver/internal/defio"
	"github.com/rlupton/weaver/internal/diagnostics"
	"github.com/rlupton/weaver/internal/procdim"
	"github.com/rlupton/weaver/internal/speccache"
	"github.com/rlupton/weaver/internal/telemetry"
	"github.com/rlupton/weaver/spec"
)

type compileFlags struct {
	measures            []string
	linkWidth           string
	linkColor           string
	paletteName         string
	colorMapping        string
	noElsewhereWaypoint bool
	gzip                bool
	noGzip              bool
	out                 string
	dimensionTable      string
	cache               string
	metricsAddr         string
	verbose             bool
	logFormat           string
	otlpEndpoint        string
}

func newCompileCmd() *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "compile <definition.json>",
		Short: "Compile a diagram definition into a spec document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.measures, "measure", nil, "measure column:aggregation (repeatable), e.g. value:sum")
	cmd.Flags().StringVar(&flags.linkWidth, "link-width", "", "measure column used for link width")
	cmd.Flags().StringVar(&flags.linkColor, "link-color", "", "inline JSON or @file color spec for links")
	cmd.Flags().StringVar(&flags.paletteName, "palette-name", "", "named palette to stamp onto --color-mapping")
	cmd.Flags().StringVar(&flags.colorMapping, "color-mapping", "", "inline JSON or @file quantitative color-mapping document")
	cmd.Flags().BoolVar(&flags.noElsewhereWaypoint, "no-elsewhere-waypoints", false, "route Elsewhere traffic without a synthetic waypoint node")
	cmd.Flags().BoolVar(&flags.gzip, "gzip", false, "gzip the output spec document")
	cmd.Flags().BoolVar(&flags.noGzip, "no-gzip", false, "force uncompressed output even if --gzip is set")
	cmd.Flags().StringVar(&flags.out, "out", "-", "output path, or - for stdout")
	cmd.Flags().StringVar(&flags.dimensionTable, "dimension-table", "", "JSON file of {id: {attr: value}} rows used to resolve query-string process group selections")
	cmd.Flags().StringVar(&flags.cache, "cache", "", "spec cache backend: memory://, sqlite://<path>, or a MySQL DSN")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "address to expose Prometheus /metrics on, e.g. :9090")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "log compile stage diagnostics to stderr")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "text", "diagnostic log format: text or json")
	cmd.Flags().StringVar(&flags.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector endpoint to export a compile span to, e.g. localhost:4318")

	return cmd
}

func newEmitter(flags compileFlags) diagnostics.Emitter {
	if !flags.verbose {
		return diagnostics.NewNullEmitter()
	}
	return diagnostics.NewLogEmitter(os.Stderr, flags.logFormat == "json")
}

func runCompile(ctx context.Context, definitionPath string, flags compileFlags) error {
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	emitter := newEmitter(flags)
	if flags.metricsAddr != "" {
		serveMetrics(flags.metricsAddr, registry)
	}

	tracer, shutdown, err := setupTracer(ctx, flags)
	if err != nil {
		return fmt.Errorf("failed to set up OTLP tracer: %w", err)
	}
	defer shutdown(context.Background())

	definitionJSON, err := os.ReadFile(definitionPath)
	if err != nil {
		return asUserError(fmt.Errorf("failed to read definition file: %w", err))
	}

	def, err := defio.Load(definitionJSON)
	if err != nil {
		return asUserError(fmt.Errorf("failed to parse definition: %w", err))
	}
	emitter.Emit(diagnostics.Event{Stage: "load", Msg: "definition_loaded", Meta: map[string]any{
		"nodes": len(def.Nodes), "bundles": len(def.Bundles),
	}})

	opts, err := buildCompileOptions(ctx, flags)
	if err != nil {
		return err
	}

	cache, cacheKey, err := openCache(ctx, flags, definitionJSON, opts)
	if err != nil {
		return fmt.Errorf("failed to open spec cache: %w", err)
	}
	if cache != nil {
		defer cache.Close()
		if cached, err := cache.Get(ctx, cacheKey); err == nil {
			emitter.Emit(diagnostics.Event{Stage: "cache", Msg: "cache_hit", Meta: map[string]any{"key": cacheKey}})
			return writeSpec(cached, flags)
		}
		emitter.Emit(diagnostics.Event{Stage: "cache", Msg: "cache_miss", Meta: map[string]any{"key": cacheKey}})
	}

	var sp spec.WeaverSpec
	start := time.Now()
	err = tracer.StageCompile(ctx, definitionPath, func(ctx context.Context) error {
		sp, err = compiler.Compile(def, opts...)
		return err
	})
	metrics.ObserveCompile(time.Since(start).Seconds(), err == nil)
	if err != nil {
		emitter.Emit(diagnostics.Event{Stage: "compile", Msg: "compile_failed", Meta: map[string]any{"error": err.Error()}})
		return asUserError(fmt.Errorf("compile failed: %w", err))
	}
	metrics.ObserveEdgesProduced(len(sp.Edges))
	emitter.Emit(diagnostics.Event{Stage: "compile", Msg: "compile_complete", Meta: map[string]any{
		"edges": len(sp.Edges), "nodes": len(sp.Nodes),
	}})

	if cache != nil {
		if err := cache.Put(ctx, cacheKey, sp); err != nil {
			return fmt.Errorf("failed to write spec cache: %w", err)
		}
	}

	return writeSpec(sp, flags)
}

// setupTracer builds a telemetry.Tracer wrapping the compile stage in an
// OpenTelemetry span. With --otlp-endpoint unset, it uses the process-wide
// (no-op, by default) TracerProvider, matching the teacher's emit.OTelEmitter
// usage pattern; the returned shutdown func only does real work once an
// exporter is wired up.
func setupTracer(ctx context.Context, flags compileFlags) (*telemetry.Tracer, func(context.Context) error, error) {
	if flags.otlpEndpoint == "" {
		return telemetry.NewTracer(otel.Tracer("weaver")), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(flags.otlpEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return telemetry.NewTracer(tp.Tracer("weaver")), tp.Shutdown, nil
}

func buildCompileOptions(ctx context.Context, flags compileFlags) ([]compiler.Option, error) {
	var opts []compiler.Option

	if len(flags.measures) > 0 {
		measures, err := parseMeasures(flags.measures)
		if err != nil {
			return nil, asUserError(err)
		}
		opts = append(opts, compiler.WithMeasures(measures...))
	}
	if flags.linkWidth != "" {
		opts = append(opts, compiler.WithLinkWidth(flags.linkWidth))
	}

	colorSpec, err := resolveLinkColor(flags)
	if err != nil {
		return nil, asUserError(err)
	}
	if colorSpec != nil {
		opts = append(opts, compiler.WithLinkColor(colorSpec))
	}

	if flags.noElsewhereWaypoint {
		opts = append(opts, compiler.WithElsewhereWaypoints(false))
	}

	if flags.dimensionTable != "" {
		lookup, err := loadDimensionLookup(ctx, flags.dimensionTable)
		if err != nil {
			return nil, asUserError(err)
		}
		opts = append(opts, compiler.WithDimensionLookup(lookup.Resolve))
	}

	return opts, nil
}

func parseMeasures(raw []string) ([]spec.MeasureSpec, error) {
	var measures []spec.MeasureSpec
	for _, m := range raw {
		column, aggregation, found := strings.Cut(m, ":")
		if !found {
			aggregation = "sum"
		}
		if column == "" {
			return nil, fmt.Errorf("invalid --measure %q: expected column or column:aggregation", m)
		}
		measures = append(measures, spec.MeasureSpec{Column: column, Aggregation: aggregation})
	}
	return measures, nil
}

func resolveLinkColor(flags compileFlags) (spec.ColorSpec, error) {
	if flags.colorMapping == "" && flags.linkColor == "" {
		if flags.paletteName != "" {
			return nil, fmt.Errorf("--palette-name requires --color-mapping or --link-color")
		}
		return nil, nil
	}
	if flags.colorMapping != "" {
		return defio.ParseColorMappingWithPalette(flags.colorMapping, flags.paletteName)
	}
	return defio.ParseColorMappingWithPalette(flags.linkColor, flags.paletteName)
}

func loadDimensionLookup(ctx context.Context, path string) (*procdim.Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dimension table: %w", err)
	}
	var rows map[string]map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse dimension table: %w", err)
	}
	return procdim.NewLookup(ctx, rows)
}

func openCache(ctx context.Context, flags compileFlags, definitionJSON []byte, opts []compiler.Option) (speccache.Store, string, error) {
	if flags.cache == "" {
		return nil, "", nil
	}

	descriptor := fmt.Sprintf("%s|%s|%s|%s|%v", strings.Join(flags.measures, ","), flags.linkWidth, flags.linkColor, flags.colorMapping, flags.noElsewhereWaypoint)
	key := speccache.Key(definitionJSON, descriptor)

	switch {
	case flags.cache == "memory://":
		return speccache.NewMemStore(), key, nil
	case strings.HasPrefix(flags.cache, "sqlite://"):
		store, err := speccache.NewSQLiteStore(strings.TrimPrefix(flags.cache, "sqlite://"))
		return store, key, err
	default:
		store, err := speccache.NewMySQLStore(flags.cache)
		return store, key, err
	}
}

func writeSpec(sp spec.WeaverSpec, flags compileFlags) error {
	data, err := spec.Marshal(sp)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	var w io.Writer = os.Stdout
	var closer io.Closer
	if flags.out != "-" {
		f, err := os.Create(flags.out)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		w, closer = f, f
	}
	if closer != nil {
		defer closer.Close()
	}

	if flags.gzip && !flags.noGzip {
		gz := gzip.NewWriter(w)
		defer gz.Close()
		w = gz
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
