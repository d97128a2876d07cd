package statement

import "fmt"

// TimestampPlaceholder is the literal token the model is told to emit for
// created_at/updated_at. The sanitizer substitutes the real timestamp after
// the fact; model-generated timestamps are not trusted.
const TimestampPlaceholder = "<CURRENT_TIMESTAMP>"

// Prompt is the two-turn instruction payload sent to the model.
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `You are a bank statement parser. You read raw text extracted from a bank
statement PDF and emit transactions as JSON. You respond with a JSON array and
nothing else: no prose, no markdown fences, no explanations.`

// BuildPrompt produces the instruction payload for one statement. The prompt
// text is load-bearing: it defines which fields are trustworthy (ids and
// timestamps are stamped literally) and which are heuristic (names, dates),
// so the rules and worked examples below must stay in sync with the sanitizer
// and the downstream filter.
func BuildPrompt(rawText string, currencyID int, userID string, cycleStartDay int) Prompt {
	user := fmt.Sprintf(`Extract every transaction from the bank statement text below into a JSON
array. Each element must have exactly these fields:

{
  "transaction_date": "YYYY-MM-DD",
  "transaction_name": "human readable counterparty name",
  "amount": 0.00,
  "transaction_type": 0,
  "code": "raw payment reference from the statement",
  "currency_id": %d,
  "user_id": "%s",
  "created_at": "%s",
  "updated_at": "%s"
}

Rules:
1. Include only transactions dated on or after day %d of the month. Skip
   anything earlier.
2. transaction_type is 0 for money going out (cues: "DR", "Debit",
   "Withdrawal") and 1 for money coming in (cues: "CR", "Credit", "Deposit").
3. Derive transaction_name from the payment reference:
   - UPI references like "UPI-SWIGGY LIMITED-swiggy.stores@axisb" name the
     payee between the first and second dash: "Swiggy Limited".
   - NEFT/IMPS references like "NEFT-N12345678-RAHUL SHARMA-SALARY" carry the
     counterparty after the reference number: "Rahul Sharma".
   - Card rows like "POS 4012XXXX3456 AMAZON PAY" name the merchant after the
     masked card number: "Amazon Pay".
   - If no pattern matches, use the first meaningful word of the description
     (skip reference numbers and bank codes).
4. amount is always a positive number; the direction is carried by
   transaction_type.
5. code is the raw reference text of the row, unmodified.
6. Set currency_id to %d and user_id to "%s" on every record, exactly as
   given.
7. Set created_at and updated_at to the literal string "%s" on every record.
   Do not compute a timestamp yourself.
8. Ignore balance summaries, interest footers, page headers and any row that
   is not an actual transaction.

Statement text:
%s`,
		currencyID, userID, TimestampPlaceholder, TimestampPlaceholder,
		cycleStartDay,
		currencyID, userID,
		TimestampPlaceholder,
		rawText,
	)

	return Prompt{System: systemPrompt, User: user}
}
