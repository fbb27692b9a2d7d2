package driver

import (
	"crowdfuzz/internal/logging"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/statsregion"
)

// pluginCore adapts a statsregion.Writer and a named logging.Source into
// the pluginapi.CoreInterface a loaded plugin receives on Load. A
// dedicated adapter is required here (rather than handing the plugin the
// concrete types directly) because pluginapi.PluginStats.NewNumStat/
// NewBytesStat/NewStrStat are declared to return pluginapi's own
// interface types, and Go requires a method's declared return type to
// match an interface's exactly for the method set to satisfy it -
// *statsregion.PluginWriter returns its own concrete NumStat/BytesStat/
// StrStat structs, which satisfy pluginapi's stat interfaces by method
// shape but not by declared return type, so PluginWriter itself cannot
// stand in for pluginapi.PluginStats without this wrapper.
type pluginCore struct {
	region *statsregion.Writer
	log    *logging.Source
}

// newPluginCore builds the CoreInterface handed to one plugin.
func newPluginCore(region *statsregion.Writer, log *logging.Source) *pluginCore {
	return &pluginCore{region: region, log: log}
}

func (c *pluginCore) Info(msg string)  { c.log.Info(msg) }
func (c *pluginCore) Error(msg string) { c.log.Error(msg) }

func (c *pluginCore) NewPlugin(name string) (pluginapi.PluginStats, error) {
	pw, err := c.region.NewPlugin(name)
	if err != nil {
		return nil, err
	}

	return &statsAdapter{pw: pw}, nil
}

// statsAdapter wraps *statsregion.PluginWriter to satisfy
// pluginapi.PluginStats. The individual stat values it returns
// (statsregion.NumStat/BytesStat/StrStat) already satisfy
// pluginapi.NumStat/BytesStat/StrStat by method shape and need no
// further wrapping.
type statsAdapter struct {
	pw *statsregion.PluginWriter
}

func (a *statsAdapter) NewNumStat(tag string, init uint64) (pluginapi.NumStat, error) {
	return a.pw.NewNumStat(tag, init)
}

func (a *statsAdapter) NewBytesStat(tag string, capacity int, init []byte) (pluginapi.BytesStat, error) {
	return a.pw.NewBytesStat(tag, capacity, init)
}

func (a *statsAdapter) NewStrStat(tag string, capacity int, init string) (pluginapi.StrStat, error) {
	return a.pw.NewStrStat(tag, capacity, init)
}
