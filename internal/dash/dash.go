package dash

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/scorer"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/tracker"
)

// StatusSource is what the dashboard reads; the engine implements it.
type StatusSource interface {
	Report() tracker.Report
	Alerts() []tracker.Alert
	ScorerStats() scorer.Stats
}

type status struct {
	Report      tracker.Report  `json:"report"`
	ScorerStats scorer.Stats    `json:"scorer_stats"`
	Alerts      []tracker.Alert `json:"alerts"`
	TS          int64           `json:"ts"`
}

func handler(src StatusSource) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		alerts := src.Alerts()
		// newest first, capped for the page
		for i, j := 0, len(alerts)-1; i < j; i, j = i+1, j-1 {
			alerts[i], alerts[j] = alerts[j], alerts[i]
		}
		if len(alerts) > 20 {
			alerts = alerts[:20]
		}
		_ = json.NewEncoder(w).Encode(status{
			Report:      src.Report(),
			ScorerStats: src.ScorerStats(),
			Alerts:      alerts,
			TS:          time.Now().UnixMilli(),
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})
	return withCORS(mux)
}

func StartHTTP(ctx context.Context, src StatusSource, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler(src),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() { <-ctx.Done(); _ = srv.Close() }()

	log.Printf("[dash] listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !strings.Contains(err.Error(), "Server closed") {
		log.Printf("[dash] http server error: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>APEX Engine</title>
  <style>
    :root { --bg:#f8fafc; --card:#fff; --muted:#6b7280; --chip:#e5e7eb; }
    body{margin:0;background:var(--bg);font:14px/1.4 ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; color:#111827;}
    .wrap{max-width:960px;margin:24px auto;padding:0 16px;}
    .hdr{display:flex;align-items:flex-end;justify-content:space-between;margin-bottom:12px;}
    .state{font-size:12px;padding:2px 8px;border-radius:999px;background:#d1fae5;color:#065f46;}
    .cards{display:grid;grid-template-columns:repeat(auto-fit,minmax(200px,1fr));gap:12px;margin-bottom:16px;}
    .card{background:var(--card);border-radius:16px;padding:14px;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    .card .k{color:var(--muted);font-size:12px;} .card .v{font-size:22px;font-weight:600;margin-top:4px;}
    table{width:100%;border-collapse:collapse;background:var(--card);border-radius:16px;overflow:hidden;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    thead{background:#f3f4f6;} th,td{padding:10px 14px;text-align:left;} tbody tr{border-top:1px solid #f3f4f6;}
    .lvl{padding:2px 8px;border-radius:8px;font-size:12px;}
    .lvl.SUCCESS{background:#dcfce7;color:#166534;} .lvl.INFO{background:#dbeafe;color:#1e40af;}
    .lvl.WARNING{background:#fef3c7;color:#92400e;} .lvl.ERROR{background:#fee2e2;color:#991b1b;}
    .sub{color:var(--muted);font-size:12px;margin:0;}
  </style>
</head>
<body>
<div class="wrap">
  <div class="hdr">
    <div>
      <h1 style="margin:0;font-size:22px;font-weight:600">APEX Engine</h1>
      <p class="sub">Opportunity scoring &amp; execution tracking</p>
    </div>
    <div id="state" class="state">live</div>
  </div>
  <div class="cards">
    <div class="card"><div class="k">Scored</div><div class="v" id="scored">—</div></div>
    <div class="card"><div class="k">Executed</div><div class="v" id="executed">—</div></div>
    <div class="card"><div class="k">Success rate (window)</div><div class="v" id="rate">—</div></div>
    <div class="card"><div class="k">Total profit</div><div class="v" id="profit">—</div></div>
    <div class="card"><div class="k">Avg score</div><div class="v" id="avgscore">—</div></div>
  </div>
  <table>
    <thead><tr><th>Time</th><th>Level</th><th>Message</th></tr></thead>
    <tbody id="alerts"></tbody>
  </table>
</div>
<script>
  function usd(x){ return (x==null||isNaN(x)) ? '—' : ('$'+Number(x).toLocaleString(undefined,{maximumFractionDigits:2})); }
  function pct(x){ return (x==null||isNaN(x)) ? '—' : ((x*100).toFixed(2)+'%'); }
  function alertHTML(a){
    return '<tr>'
      + '<td style="color:#6B7280;font-size:12px">' + new Date(a.ts).toLocaleTimeString() + '</td>'
      + '<td><span class="lvl ' + a.level + '">' + a.level + '</span></td>'
      + '<td>' + a.message + '</td>'
      + '</tr>';
  }
  async function tick(){
    try{
      var res = await fetch('/api/status', {cache:'no-store'});
      if(!res.ok) throw new Error('status '+res.status);
      var s = await res.json();
      document.getElementById('state').textContent = 'live';
      document.getElementById('scored').textContent = s.scorer_stats.scored;
      document.getElementById('executed').textContent = s.report.metrics.executed_opportunities;
      document.getElementById('rate').textContent = pct(s.report.current_success_rate);
      document.getElementById('profit').textContent = usd(s.report.metrics.total_profit_usd - s.report.metrics.total_loss_usd);
      document.getElementById('avgscore').textContent = (s.scorer_stats.avg_score||0).toFixed(1);
      document.getElementById('alerts').innerHTML = (s.alerts||[]).map(alertHTML).join('');
    }catch(e){
      document.getElementById('state').textContent = 'offline';
    }
  }
  tick(); setInterval(tick, 1000);
</script>
</body>
</html>`
