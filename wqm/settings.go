package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gowqm/pkg/wqm"
)

// showSettingsDialog displays a settings dialog with tabs for the configuration.
// Saved changes take effect on the next start.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createNetworkTab(state),
		createTriggerTab(state),
		createPublishTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, widget.NewLabel("Changes are applied after restart."), nil, nil, tabs)

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(520, 420))
	d.Show()
}

// saveConfig writes the configuration and reports failures in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	var portOptions []string
	if ports, err := wqm.Ports(); err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Name)
		}
	}

	currentPort := state.cfg.Serial.Port
	found := false
	for _, opt := range portOptions {
		if opt == currentPort {
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentPort != "" {
		portSelect.SetSelected(currentPort)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				state.cfg.Serial.Port = portSelect.Selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Serial.BaudRate = baud
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createNetworkTab creates the classifier endpoint tab.
func createNetworkTab(state *appState) *container.TabItem {
	endpointEntry := widget.NewEntry()
	endpointEntry.SetText(state.cfg.Network.Endpoint)

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Network.Timeout.String())

	attemptsEntry := widget.NewEntry()
	attemptsEntry.SetText(strconv.Itoa(state.cfg.Network.AssociationAttempts))

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Network.AssociationInterval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Classifier Endpoint", Widget: endpointEntry},
			{Text: "Request Timeout", Widget: timeoutEntry},
			{Text: "Association Attempts", Widget: attemptsEntry},
			{Text: "Association Interval", Widget: intervalEntry},
		},
		OnSubmit: func() {
			if ep := strings.TrimSpace(endpointEntry.Text); ep != "" {
				state.cfg.Network.Endpoint = ep
			}
			if d, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Network.Timeout = d
			}
			if n, err := strconv.Atoi(attemptsEntry.Text); err == nil {
				state.cfg.Network.AssociationAttempts = n
			}
			if d, err := time.ParseDuration(intervalEntry.Text); err == nil {
				state.cfg.Network.AssociationInterval = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Network", form)
}

// createTriggerTab creates the trigger timing tab.
func createTriggerTab(state *appState) *container.TabItem {
	pollEntry := widget.NewEntry()
	pollEntry.SetText(state.cfg.Trigger.PollInterval.String())

	debounceEntry := widget.NewEntry()
	debounceEntry.SetText(state.cfg.Trigger.DebounceDelay.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Poll Interval", Widget: pollEntry},
			{Text: "Debounce Delay", Widget: debounceEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(pollEntry.Text); err == nil {
				state.cfg.Trigger.PollInterval = d
			}
			if d, err := time.ParseDuration(debounceEntry.Text); err == nil {
				state.cfg.Trigger.DebounceDelay = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Trigger", form)
}

// createPublishTab creates the result publishing tab.
func createPublishTab(state *appState) *container.TabItem {
	backendSelect := widget.NewSelect([]string{"none", "mqtt", "kafka"}, nil)
	backend := state.cfg.Publish.Backend
	if backend == "" {
		backend = "none"
	}
	backendSelect.SetSelected(backend)

	brokerEntry := widget.NewEntry()
	brokerEntry.SetText(state.cfg.Publish.Broker)

	brokersEntry := widget.NewEntry()
	brokersEntry.SetText(strings.Join(state.cfg.Publish.Brokers, ","))

	topicEntry := widget.NewEntry()
	topicEntry.SetText(state.cfg.Publish.Topic)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Backend", Widget: backendSelect},
			{Text: "MQTT Broker", Widget: brokerEntry},
			{Text: "Kafka Brokers", Widget: brokersEntry},
			{Text: "Topic", Widget: topicEntry},
		},
		OnSubmit: func() {
			state.cfg.Publish.Backend = backendSelect.Selected
			if state.cfg.Publish.Backend == "none" {
				state.cfg.Publish.Backend = ""
			}
			state.cfg.Publish.Broker = strings.TrimSpace(brokerEntry.Text)
			state.cfg.Publish.Brokers = splitList(brokersEntry.Text)
			if topic := strings.TrimSpace(topicEntry.Text); topic != "" {
				state.cfg.Publish.Topic = topic
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Publish", form)
}

// createMockTab creates the Mock sensor board tab.
func createMockTab(state *appState) *container.TabItem {
	entries := []struct {
		label string
		value *uint16
	}{
		{"Chlorine (raw)", &state.cfg.Mock.Chlorine},
		{"Turbidity (raw)", &state.cfg.Mock.Turbidity},
		{"Conductivity (raw)", &state.cfg.Mock.Conductivity},
		{"pH (raw)", &state.cfg.Mock.PH},
		{"Noise (raw)", &state.cfg.Mock.Noise},
	}

	form := &widget.Form{}
	widgets := make([]*widget.Entry, len(entries))
	for i, e := range entries {
		widgets[i] = widget.NewEntry()
		widgets[i].SetText(strconv.Itoa(int(*e.value)))
		form.Append(e.label, widgets[i])
	}

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())
	form.Append("Sample Rate", sampleRateEntry)

	form.OnSubmit = func() {
		for i, e := range entries {
			if v, err := strconv.ParseUint(widgets[i].Text, 10, 16); err == nil && v <= wqm.MaxADC {
				*e.value = uint16(v)
			}
		}
		if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil {
			state.cfg.Mock.SampleRate = sr
		}
		saveConfig(state)
	}

	return container.NewTabItem("Mock", form)
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
