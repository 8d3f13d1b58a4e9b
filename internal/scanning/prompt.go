package scanning

// itemsPrompt asks a vision model for the purchased items directly
const itemsPrompt = `Analyze this receipt image and extract all food/grocery items with their details.

For each item, provide:
- Ingredient name (cleaned up, no extra codes)
- Quantity (with units like "2 kg", "1 pack", "500g"; use "1" when no quantity is printed)
- Price (just the number with 2 decimal places, no currency symbol)

Return the data as a JSON array with this exact format:
[
  {
    "Date": "YYYY-MM-DD",
    "Ingredient": "Whole Milk",
    "Quantity": "2 PT",
    "Price": "2.40",
    "Notes": ""
  }
]

Rules:
- Skip non-food items (bags, receipts, etc.)
- Clean up ingredient names (remove barcodes, store codes)
- Use the date printed on the receipt; leave it empty if there is none
- Leave Notes empty unless something on the receipt is worth recording
- Only return valid JSON, no explanations
- Do not use markdown code blocks`

// fragmentsPrompt asks a vision model to act as a plain text recognizer
const fragmentsPrompt = `Read every line of text printed on this receipt, from top to bottom.

Return a JSON array with one object per printed line:
[
  {"text": "Whole Milk 2.40", "confidence": 0.97, "top": 0.12}
]

Rules:
- "text" is the line exactly as printed, including prices and currency symbols
- "confidence" is how sure you are of the reading, between 0 and 1
- "top" is the vertical position of the line, 0 at the top edge and 1 at the bottom edge
- Do not correct, translate or summarize the text
- Only return valid JSON, no explanations
- Do not use markdown code blocks`
