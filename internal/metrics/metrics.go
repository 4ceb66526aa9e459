package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectedPlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inarow_connected_players",
			Help: "Players currently connected to the match server",
		},
	)
	ConnectedObservers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inarow_connected_observers",
			Help: "Spectators currently connected to the match server",
		},
	)
	JoinsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inarow_joins_accepted_total",
			Help: "Join requests accepted, by join type",
		},
		[]string{"join_type"},
	)
	JoinsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inarow_joins_rejected_total",
			Help: "Join requests rejected, by reason",
		},
		[]string{"reason"},
	)
	Drops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inarow_participants_dropped_total",
			Help: "Participants removed from the connected set, by kind and cause",
		},
		[]string{"kind", "cause"},
	)
	GameResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inarow_game_results_total",
			Help: "Finished games, by final move result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ConnectedPlayers)
	prometheus.MustRegister(ConnectedObservers)
	prometheus.MustRegister(JoinsAccepted)
	prometheus.MustRegister(JoinsRejected)
	prometheus.MustRegister(Drops)
	prometheus.MustRegister(GameResults)
}
