package httptransport

import "expvar"

var (
	metricQueueJoinTotal  = expvar.NewInt("queue_join_total")
	metricQueueJoinErrors = expvar.NewInt("queue_join_errors_total")

	metricMoveSubmitTotal  = expvar.NewInt("move_submit_total")
	metricMoveSubmitErrors = expvar.NewInt("move_submit_errors_total")

	metricWithdrawalRequestTotal  = expvar.NewInt("withdrawal_request_total")
	metricWithdrawalRequestErrors = expvar.NewInt("withdrawal_request_errors_total")

	metricAdminCreditTotal = expvar.NewInt("admin_credit_total")
)
