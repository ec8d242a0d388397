// Package submit posts captured records to the property-management endpoint.
//
// # Request
//
//	POST <url>/pms/q
//	{"sid": "...", "code": "ctc_interface", "axn": "u",
//	 "data": {"name", "dob", "id_no", "gender", "race",
//	          "addr1", "addr2", "postcode", "city", "state"}}
//
// # Classification
//
// Outcome turns the result of Submit into one of four outcomes:
//
//   - no response: submission_failed, message carries the cause
//   - non-2xx status, or a 2xx body that is not JSON: submission_rejected
//   - msg other than "ok": submission_application_error, msg verbatim
//   - msg "ok": submission_succeeded, "Customer: <name> (<code>)"
//
// The status is checked before the body, so a 500 is rejected even when its
// body claims success. Each insertion produces exactly one request.
package submit
