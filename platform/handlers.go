package platform

import (
	"context"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/ferrisk/beacon/engine"
	"github.com/ferrisk/beacon/internal/sysinfo"
	"github.com/ferrisk/beacon/web"
	"github.com/ferrisk/beacon/wifi"
)

// handleHome serves the station-mode landing page. A device without an
// administrator is steered into first-boot setup.
func (p *Platform) handleHome(req *engine.Request, res *engine.Response) {
	if !p.pipeline.Identities.HasAdmin() {
		res.Redirect("/setup", http.StatusFound)
		return
	}
	res.Static(web.MustPage("home.html"), "text/html; charset=utf-8")
}

func (p *Platform) handleWiFiPage(req *engine.Request, res *engine.Response) {
	res.Static(web.MustPage("wifi.html"), "text/html; charset=utf-8")
}

func (p *Platform) handlePortalPage(req *engine.Request, res *engine.Response) {
	res.Static(web.MustPage("portal.html"), "text/html; charset=utf-8")
}

// handleAsset serves the embedded static files under /assets/.
func (p *Platform) handleAsset(req *engine.Request, res *engine.Response) {
	name := path.Clean(strings.TrimPrefix(req.Path, "/assets/"))
	if name == "." || name == "/" || strings.HasPrefix(name, "..") {
		res.Error(http.StatusNotFound, "not_found", "Not found")
		return
	}

	assets, err := web.Assets()
	if err != nil {
		res.Error(http.StatusInternalServerError, "internal", "Asset store unavailable")
		return
	}
	content, err := fs.ReadFile(assets, name)
	if err != nil {
		res.Error(http.StatusNotFound, "not_found", "Not found")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.Static(content, contentType)
}

// handleStatus reports the device health figures. The shape is stable API
// surface; fields are added, never renamed.
func (p *Platform) handleStatus(req *engine.Request, res *engine.Response) {
	res.JSON(map[string]any{
		"device":      p.cfg.Device.Name,
		"version":     p.cfg.Device.Version,
		"mode":        p.mode.String(),
		"wifi_ssid":   p.controller.SSID(),
		"ip":          p.controller.IP(),
		"rssi":        p.controller.RSSI(),
		"https":       p.cfg.Server.HTTPSEnabled,
		"uptime":      sysinfo.Uptime(),
		"free_memory": sysinfo.FreeMemory(),
		"modules":     p.engine.Modules(),
	})
}

func (p *Platform) handleScan(req *engine.Request, res *engine.Response) {
	networks, err := p.controller.Scan(context.Background())
	if err != nil {
		res.Error(http.StatusServiceUnavailable, "scan_failed", "Network scan failed")
		return
	}
	if networks == nil {
		networks = []wifi.Network{}
	}
	res.JSON(map[string]any{"networks": networks})
}

// handlePortalSave is the portal's form endpoint. It writes credentials
// and schedules the restart; there is no live handoff to station mode.
func (p *Platform) handlePortalSave(req *engine.Request, res *engine.Response) {
	p.saveCredentials(req, res, req.Param("ssid"), req.Param("password"))
	if res.Status == http.StatusOK && !req.WantsJSON() {
		res.Static(web.MustPage("saved.html"), "text/html; charset=utf-8")
	}
}

// handleWiFiSave is the station-mode JSON variant of credential save.
func (p *Platform) handleWiFiSave(req *engine.Request, res *engine.Response) {
	ssid := req.Param("ssid")
	psk := req.Param("password")
	if req.HasJSONBody() {
		ssid = req.JSONParam("ssid")
		psk = req.JSONParam("password")
	}
	p.saveCredentials(req, res, ssid, psk)
}

func (p *Platform) saveCredentials(req *engine.Request, res *engine.Response, ssid, psk string) {
	if ssid == "" {
		res.Error(http.StatusBadRequest, "invalid_request", "SSID is required")
		return
	}

	truncated, err := p.creds.Save(ssid, psk)
	if err != nil {
		res.Error(http.StatusInternalServerError, "storage_failed", "Credential write failed")
		return
	}
	if truncated {
		p.log.Warn().Str("ssid", ssid).Msg("credential fields truncated to storage width")
	}

	res.JSON(map[string]any{
		"success": true,
		"message": "Credentials saved. The device is restarting.",
	})
	p.restart.Schedule("credentials saved")
}

// handleReset clears the stored credentials; the device comes back up in
// portal mode. The success body goes out before the restart fires.
func (p *Platform) handleReset(req *engine.Request, res *engine.Response) {
	if err := p.creds.Clear(); err != nil {
		res.Error(http.StatusInternalServerError, "storage_failed", "Credential clear failed")
		return
	}
	res.JSON(map[string]any{
		"success": true,
		"message": "Credentials cleared. The device is restarting.",
	})
	p.restart.Schedule("credentials cleared")
}

func (p *Platform) handleRestart(req *engine.Request, res *engine.Response) {
	res.JSON(map[string]any{
		"success": true,
		"message": "The device is restarting.",
	})
	p.restart.Schedule("restart requested")
}
