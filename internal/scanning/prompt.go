package scanning

// receiptScanPrompt is shared by the LLM backends. It asks for the same field set the
// Azure receipt model produces so every backend feeds the same normalizer.
const receiptScanPrompt = `You are analyzing a photo of a purchase receipt. Read all text in the image and extract the fields below.

For every field return an object {"value": ..., "confidence": ...} where confidence is a number between 0 and 1 describing how sure you are. If a field is not printed on the receipt use null for the whole field.

Fields:
- "vendor_name": the merchant or store name, usually the largest text in the header.
- "transaction_date": the purchase date in YYYY-MM-DD format.
- "transaction_time": the purchase time in HH:MM:SS format.
- "subtotal": the amount before tax and tip, as a number.
- "total_tax": the total tax charged, as a number.
- "tip": the gratuity, as a number.
- "total": the final amount paid, as a number.
- "items": an array with one entry per purchased line, each with "description" (string field), "total_price" (number field, negative for discounts and coupons) and "quantity" (number field).

Also return:
- "receipt_found": false if the image is not a receipt, otherwise true.
- "content": all recognized text of the receipt, top to bottom, one printed line per line.

Return ONLY valid JSON in this exact format:
{
  "receipt_found": true,
  "vendor_name": {"value": "Store Name", "confidence": 0.95},
  "transaction_date": {"value": "2024-01-15", "confidence": 0.9},
  "transaction_time": {"value": "13:45:00", "confidence": 0.8},
  "subtotal": {"value": 10.00, "confidence": 0.9},
  "total_tax": {"value": 0.80, "confidence": 0.9},
  "tip": null,
  "total": {"value": 10.80, "confidence": 0.95},
  "items": [
    {"description": {"value": "Coffee", "confidence": 0.9}, "total_price": {"value": 10.00, "confidence": 0.9}, "quantity": {"value": 1, "confidence": 0.9}}
  ],
  "content": "STORE NAME\n..."
}

Do not include any text before or after the JSON and do not use markdown code blocks.`
