package browsertools

import "fmt"

// PageSnapshot is the textual view of the current page handed to the
// model: interactive elements are tagged with [N] ids that map back to
// data-ai-id attributes set on the live DOM.
type PageSnapshot struct {
	URL   string
	Title string
	Tree  string
}

// snapshotScript walks the visible DOM, assigns data-ai-id markers to
// interactive elements and renders a compact indented tree. Text is
// capped per node and off-viewport elements are skipped to keep the
// output within the model's context budget.
const snapshotScript = `() => {
	let idCounter = 1;
	const interactiveTags = new Set(['a', 'button', 'input', 'textarea', 'select', 'details', 'summary']);
	const skipTags = new Set(['script', 'style', 'svg', 'path', 'noscript']);

	document.querySelectorAll('[data-ai-id]').forEach(el => el.removeAttribute('data-ai-id'));

	function cleanText(text) {
		if (!text) return '';
		const res = text.replace(/\s+/g, ' ').trim();
		return res.length > 100 ? res.slice(0, 100) + '...' : res;
	}

	function isVisible(el) {
		if (!el || !el.getBoundingClientRect) return false;
		if (el.getAttribute('aria-hidden') === 'true') return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const inViewport = rect.top < window.innerHeight && rect.bottom > 0 &&
			rect.left < window.innerWidth && rect.right > 0;
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none' &&
			style.opacity !== '0' && inViewport;
	}

	function isInteractive(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const tabIndex = el.getAttribute('tabindex');
		return interactiveTags.has(tag) ||
			['button', 'link', 'checkbox', 'menuitem', 'tab', 'textbox', 'combobox', 'option'].includes(role) ||
			(tabIndex !== null && tabIndex !== '-1') ||
			el.onclick != null;
	}

	function label(el) {
		const tag = el.tagName.toLowerCase();
		let text = cleanText(el.innerText || el.textContent || '');
		if (!text) text = cleanText(el.getAttribute('aria-label') || '');
		if (!text) text = cleanText(el.getAttribute('title') || '');
		if (!text && (tag === 'input' || tag === 'textarea')) {
			text = cleanText(el.getAttribute('placeholder') || '');
		}
		return text;
	}

	function traverse(node, depth) {
		if (!node || depth > 20) return '';

		if (node.nodeType === Node.TEXT_NODE) {
			const text = cleanText(node.textContent);
			return text.length > 2 ? '  '.repeat(depth) + text + '\n' : '';
		}
		if (node.nodeType !== Node.ELEMENT_NODE) return '';

		const el = node;
		const tag = el.tagName.toLowerCase();
		if (skipTags.has(tag) || !isVisible(el)) return '';

		let output = '';
		const prefix = '  '.repeat(depth);

		if (isInteractive(el)) {
			const aiId = idCounter++;
			el.setAttribute('data-ai-id', String(aiId));
			const parts = ['<' + tag];
			const l = label(el);
			if (l) parts.push('label="' + l.replace(/"/g, '\\"') + '"');
			if ((tag === 'input' || tag === 'textarea') && el.value) {
				parts.push('value="' + cleanText(el.value).replace(/"/g, '\\"') + '"');
			}
			output += prefix + '[' + aiId + '] ' + parts.join(' ') + '>\n';
		} else if (['h1', 'h2', 'h3', 'h4', 'h5'].includes(tag)) {
			output += prefix + '<' + tag + '> ' + cleanText(el.innerText) + '\n';
		}

		for (const child of el.childNodes) {
			output += traverse(child, depth + 1);
		}
		return output;
	}

	return traverse(document.body, 0);
}`

// Snapshot renders the current page as a PageSnapshot.
func (d *Driver) Snapshot() (*PageSnapshot, error) {
	result, err := d.page.Evaluate(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot evaluation failed: %w", err)
	}
	tree, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("snapshot returned %T, expected string", result)
	}

	title, _ := d.page.Title()
	return &PageSnapshot{
		URL:   d.page.URL(),
		Title: title,
		Tree:  tree,
	}, nil
}
