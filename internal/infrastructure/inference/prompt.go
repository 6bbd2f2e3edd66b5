package inference

// menuExtractionPrompt instructs the model to emit JSON only, matching
// menuPayload. Order must follow the menu so cards render in reading order.
const menuExtractionPrompt = `You are reading a photograph of a restaurant menu.
Extract every dish you can identify and respond with JSON only, no prose and
no markdown, in exactly this shape:

{"dishes":[{"original_name":"...","english_translation":"...","ingredients_or_description":"...","price":"...","category":"..."}]}

Rules:
- original_name is the dish name exactly as printed on the menu, in its
  original language. If the menu is already in English, repeat the name.
- english_translation is the dish name in English.
- ingredients_or_description is a short English description of the main
  ingredients or preparation. Infer a plausible one from the dish name if
  the menu gives none.
- price is the printed price including currency symbol; omit the field when
  the menu shows no price.
- category is the menu section the dish appears under (e.g. "Appetizers");
  omit the field when there is none.
- Keep dishes in the order they appear on the menu. Do not deduplicate.
- If the photo contains no readable menu, respond with {"dishes":[]}.`
