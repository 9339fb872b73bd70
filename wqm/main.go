package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/metrics"
	"github.com/itohio/gowqm/pkg/monitor"
	"github.com/itohio/gowqm/pkg/output"
	"github.com/itohio/gowqm/pkg/panel"
	"github.com/itohio/gowqm/pkg/publish"
	"github.com/itohio/gowqm/pkg/sample"
	"github.com/itohio/gowqm/pkg/wqm"
)

const publishTimeout = 5 * time.Second

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag     = flag.Bool("mock", false, "Use mocked sensor board instead of serial port")
		headlessFlag = flag.Bool("headless", false, "Run without a window; press Enter to analyze")
		endpointFlag = flag.String("endpoint", "", "Classifier endpoint override (e.g., http://192.168.0.35:8000/data)")
		listPorts    = flag.Bool("list", false, "List serial ports and exit")
	)
	flag.Parse()

	if *listPorts {
		ports, err := wqm.Ports()
		if err != nil {
			log.Fatalf("Failed to list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *endpointFlag != "" {
		cfg.Network.Endpoint = *endpointFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := &appState{cfg: cfg, configPath: *configFlag, useMock: *mockFlag, trigger: &monitor.SoftButton{}}

	if *headlessFlag {
		state.display = &output.TextDisplay{W: os.Stdout}
		go readTriggers(ctx, os.Stdin, state.trigger)
		if err := state.run(ctx, nil); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Create Fyne application
	application := app.NewWithID("com.itohio.gowqm")
	window := application.NewWindow("Water Quality Monitor")
	window.Resize(fyne.NewSize(480, 420))
	window.CenterOnScreen()
	state.window = window

	statusPanel := panel.New()
	state.display = statusPanel

	analyzeBtn := widget.NewButtonWithIcon("Analyze", theme.SearchIcon(), state.trigger.Trigger)
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})
	toolbar := container.NewBorder(nil, nil, nil, settingsBtn, analyzeBtn)
	window.SetContent(container.NewBorder(nil, toolbar, nil, nil, statusPanel))

	go func() {
		if err := state.run(ctx, statusPanel); err != nil {
			log.Printf("Monitor stopped: %v", err)
		}
		fyne.Do(application.Quit)
	}()

	window.SetOnClosed(stop)
	window.ShowAndRun()
}

// appState holds the components of the running agent.
type appState struct {
	cfg        *config.Config
	configPath string
	useMock    bool
	trigger    *monitor.SoftButton
	display    output.Display
	window     fyne.Window
}

// run connects the sensor board, associates with the network and runs the
// trigger loop until ctx is cancelled. lamps, when set, mirror the board lamps.
func (s *appState) run(ctx context.Context, lamps output.Indicators) error {
	var device wqm.Device
	if s.useMock {
		device = wqm.NewMock(&s.cfg.Mock)
		log.Println("Using mocked sensor board")
	} else {
		device = wqm.New(s.cfg.Serial.Port, s.cfg.Serial.BaudRate, wqm.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.cfg.Serial.Port, err)
	}
	defer device.Close()
	if !s.useMock {
		log.Printf("Connected to serial port: %s", s.cfg.Serial.Port)
	}

	latch := wqm.NewLatch(device.Samples())
	logCalibration(s.cfg.Calibration)

	var indicators output.Indicators = device
	if lamps != nil {
		indicators = output.TeeIndicators{device, lamps}
	}
	driver := output.NewDriver(indicators, s.display)
	driver.Start()

	link, err := s.associate(ctx)
	if err != nil {
		return err
	}

	agentMetrics := metrics.NewAgent(nil)
	client, err := classify.New(s.cfg.Network.Endpoint, s.cfg.Network.Timeout, link)
	if err != nil {
		return err
	}
	client.OnRequest = agentMetrics.ObserveRequest

	publisher, err := publish.New(s.cfg.Publish)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	mon := monitor.New(s.cfg.Trigger,
		monitor.AnyButton{latch, s.trigger},
		sample.NewReader(latch, s.cfg.Calibration),
		client,
		driver,
	)
	mon.OnCycle(func(st monitor.State, elapsed time.Duration) {
		agentMetrics.ObserveCycle(st.Reading, st.Label, elapsed)

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := publisher.Publish(pctx, publish.NewResult(st.ID, st.Reading, st.Label)); err != nil {
			log.Printf("Failed to publish result: %v", err)
		}
	})

	if s.cfg.Metrics.Listen != "" {
		go serveMetrics(ctx, s.cfg.Metrics.Listen)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-latch.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	log.Printf("Ready, classifier endpoint %s", s.cfg.Network.Endpoint)
	if err := mon.Run(runCtx); err != nil {
		return err
	}
	if ctx.Err() == nil {
		return errors.New("sensor board stream ended")
	}
	return nil
}

// associate brings the network link up. The mocked board has no radio, so
// the link is assumed up.
func (s *appState) associate(ctx context.Context) (classify.Link, error) {
	if s.useMock {
		return classify.StaticLink(true), nil
	}

	assoc, err := classify.Associate(ctx, s.cfg.Network.Endpoint,
		s.cfg.Network.AssociationAttempts, s.cfg.Network.AssociationInterval, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to associate: %w", err)
	}
	return assoc, nil
}

// logCalibration logs the output range of every sensor channel.
func logCalibration(cal config.CalibrationConfig) {
	channels := []struct {
		name string
		ch   config.ChannelConfig
	}{
		{"chlorine", cal.Chlorine},
		{"turbidity", cal.Turbidity},
		{"conductivity", cal.Conductivity},
		{"ph", cal.PH},
	}
	for _, c := range channels {
		lo, hi := sample.Range(c.ch)
		inverted := ""
		if sample.Inverted(c.ch) {
			inverted = " (inverted)"
		}
		log.Printf("Channel %s: %.1f..%.1f %s%s", c.name, lo, hi, c.ch.Unit, inverted)
	}
}

// serveMetrics exposes prometheus metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: metrics.Handler(nil), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Metrics endpoint failed: %v", err)
	}
}

// readTriggers fires the soft trigger on every line read from r.
func readTriggers(ctx context.Context, r io.Reader, trigger *monitor.SoftButton) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		trigger.Trigger()
	}
}
